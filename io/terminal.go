package io

import (
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// KEY_INTERRUPT is Ctrl-C, read as a character in raw mode.
const KEY_INTERRUPT = 0x03

// Raw mode switches, replaced in tests.
var (
	termMakeRaw = term.MakeRaw
	termRestore = term.Restore
)

// Terminal is a Tape over an interactive console. The console is in raw
// mode only while a character is read, so each keystroke is delivered
// without line buffering or echo, and the interrupt key works the rest of
// the time.
type Terminal struct {
	Tape

	fd       int
	mutex    sync.Mutex
	oldState *term.State
}

var _ Port = (*Terminal)(nil)

// IsTerminal reports whether the file is an interactive terminal.
func IsTerminal(file *os.File) bool {
	return term.IsTerminal(int(file.Fd()))
}

// Open binds the terminal to its console.
func (tm *Terminal) Open(input *os.File, output io.Writer) (err error) {
	tm.Input = input
	tm.Output = output
	tm.fd = int(input.Fd())

	return
}

// raw switches the console to raw mode.
func (tm *Terminal) raw() (err error) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.oldState, err = termMakeRaw(tm.fd)

	return
}

// ReadChar reads a keystroke in raw mode. Raw mode reports Enter as CR,
// which is translated to LF. The interrupt key is ErrInterrupt.
func (tm *Terminal) ReadChar() (value byte, err error) {
	err = tm.raw()
	if err != nil {
		return
	}

	value, err = tm.Tape.ReadChar()

	rerr := tm.Close()
	if err == nil {
		err = rerr
	}

	switch value {
	case '\r':
		value = '\n'
	case KEY_INTERRUPT:
		if err == nil {
			err = ErrInterrupt
		}
	}

	return
}

// Close restores the console from raw mode, if a read is in progress.
// It is safe to call from another goroutine.
func (tm *Terminal) Close() (err error) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	if tm.oldState != nil {
		err = termRestore(tm.fd, tm.oldState)
		tm.oldState = nil
	}

	return
}
