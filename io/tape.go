package io

import (
	"io"
)

// Tape provides sequential character I/O over byte streams.
// It wraps an io.Reader for input and io.Writer for output. A nil Input
// reads as end of stream, a nil Output discards.
type Tape struct {
	Input  io.Reader
	Output io.Writer
}

var _ Port = (*Tape)(nil)

// ReadChar reads a single byte from the input stream.
func (tc *Tape) ReadChar() (value byte, err error) {
	if tc.Input == nil {
		err = io.EOF
		return
	}

	var one [1]byte
	for {
		var n int
		n, err = tc.Input.Read(one[:])
		if n == 1 {
			value = one[0]
			err = nil
			return
		}
		if err != nil {
			return
		}
	}
}

// WriteChar writes a single byte to the output stream.
func (tc *Tape) WriteChar(value byte) (err error) {
	if tc.Output == nil {
		return
	}

	_, err = tc.Output.Write([]byte{value})

	return
}
