package io

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type failWriter struct{}

var errWrite = errors.New("write failed")

func (failWriter) Write(p []byte) (int, error) {
	return 0, errWrite
}

func TestTape(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	tape := &Tape{
		Input:  strings.NewReader("hi"),
		Output: output,
	}

	value, err := tape.ReadChar()
	assert.NoError(err)
	assert.Equal(byte('h'), value)

	value, err = tape.ReadChar()
	assert.NoError(err)
	assert.Equal(byte('i'), value)

	_, err = tape.ReadChar()
	assert.ErrorIs(err, io.EOF)

	assert.NoError(tape.WriteChar('o'))
	assert.NoError(tape.WriteChar('k'))
	assert.Equal("ok", output.String())
}

func TestTapeNil(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{}

	_, err := tape.ReadChar()
	assert.ErrorIs(err, io.EOF)

	assert.NoError(tape.WriteChar('x'))
}

func TestTapeOneByteReader(t *testing.T) {
	assert := assert.New(t)

	tape := &Tape{Input: newStutterReader("abc")}

	text := []byte{}
	for {
		value, err := tape.ReadChar()
		if err != nil {
			assert.ErrorIs(err, io.EOF)
			break
		}
		text = append(text, value)
	}
	assert.Equal("abc", string(text))
}

// newStutterReader returns a reader that reports an empty read before
// each byte.
func newStutterReader(text string) io.Reader {
	return &stutterReader{text: text}
}

type stutterReader struct {
	text  string
	empty bool
}

func (sr *stutterReader) Read(p []byte) (n int, err error) {
	sr.empty = !sr.empty
	if sr.empty {
		return
	}
	if len(sr.text) == 0 {
		err = io.EOF
		return
	}
	n = copy(p[:1], sr.text)
	sr.text = sr.text[n:]
	return
}

func TestWriteString(t *testing.T) {
	assert := assert.New(t)

	output := &bytes.Buffer{}
	err := WriteString(&Tape{Output: output}, "Hello\n")
	assert.NoError(err)
	assert.Equal("Hello\n", output.String())

	err = WriteString(&Tape{Output: failWriter{}}, "x")
	assert.ErrorIs(err, errWrite)

	err = WriteString(&Tape{Output: failWriter{}}, "")
	assert.NoError(err)
}
