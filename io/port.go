// Package io provides the character ports and program images used by the
// LC-3 emulator.
//
// A Port is the console seen by the TRAP service routines: it reads and
// writes single characters. Tape backs a Port with an io.Reader and an
// io.Writer, Terminal backs it with a raw-mode console. Rom holds a program
// image in the whitespace separated hexadecimal format.
package io

// Port defines the character console interface used by the TRAP service.
type Port interface {
	// ReadChar blocks until a single character is available.
	ReadChar() (value byte, err error)
	// WriteChar writes a single character.
	WriteChar(value byte) error
}

// WriteString writes each character of the text to the port.
func WriteString(port Port, text string) (err error) {
	for n := range len(text) {
		err = port.WriteChar(text[n])
		if err != nil {
			return
		}
	}

	return
}
