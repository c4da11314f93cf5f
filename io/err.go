package io

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Image errors
	ErrImageEmpty = errors.New(f("image has no origin"))

	// Console errors
	ErrInterrupt = errors.New(f("console interrupt"))
)

// ErrImageOpen indicates the image file could not be opened or read.
type ErrImageOpen struct {
	Path string
	Err  error
}

func (err *ErrImageOpen) Error() string {
	return f("%v: %v", err.Path, err.Err)
}

func (err *ErrImageOpen) Unwrap() error {
	return err.Err
}

// ErrImageOrigin indicates the leading origin token is malformed.
type ErrImageOrigin string

func (err ErrImageOrigin) Error() string {
	return f("origin '%v' is not a hexadecimal word", string(err))
}

// ErrImageWord indicates a malformed memory word token in a strict load.
type ErrImageWord struct {
	Index int
	Token string
}

func (err ErrImageWord) Error() string {
	return f("word %d '%v' is not a hexadecimal word", err.Index, err.Token)
}
