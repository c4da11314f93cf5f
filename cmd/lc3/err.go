package main

import (
	"errors"
	"strings"
)

var (
	ErrNoFile = errors.New(f("You must include a file."))
)

// ErrArguments lists unexpected command line arguments.
type ErrArguments []string

func (err ErrArguments) Error() string {
	return f("Unknown arguments: %v", strings.Join(err, " "))
}

// ErrPath locates a failure on a named file.
type ErrPath struct {
	Path string
	Err  error
}

func (err *ErrPath) Error() string {
	return f("%v: %v", err.Path, err.Err)
}

func (err *ErrPath) Unwrap() error {
	return err.Err
}
