package cpu

import (
	"iter"

	"github.com/ezrec/lc3/io"
)

// Line is a line of assembled code with its source location and
// generated instruction words.
type Line struct {
	LineNo    int
	Address   int
	Words     []string
	Codes     []Code
	LinkLabel string // Label to resolve into the last code.
	LinkBits  int    // Width of the linked PC offset, or 16 for an address.
}

// Program is an assembled listing.
type Program struct {
	Origin uint16
	Lines  []Line
}

// Debug locates the listing line that produced a memory address.
type Debug struct {
	*Line
	Index int
}

// Debug returns the listing line for an address. The returned Line is nil
// when the address is outside the program.
func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, line := range prog.Lines {
		if int(addr) >= line.Address && int(addr) < line.Address+len(line.Codes) {
			dbg = Debug{
				Line:  &prog.Lines[n],
				Index: int(addr) - line.Address,
			}
			break
		}
	}

	return
}

// Codes returns an iterator over the address and code of every word.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, line := range prog.Lines {
			addr := uint16(line.Address)
			for n, code := range line.Codes {
				if !yield(addr+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Image returns the program as a loadable image.
func (prog *Program) Image() (rom *io.Rom) {
	rom = &io.Rom{Origin: prog.Origin}
	for _, code := range prog.Codes() {
		rom.Data = append(rom.Data, uint16(code))
	}

	return
}
