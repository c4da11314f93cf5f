package io

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"os"
	"strconv"
	"strings"
)

// Rom is a program image: a load origin and the words stored at
// consecutive addresses from that origin.
type Rom struct {
	Strict bool // If set, a malformed memory word is an error.

	Origin uint16
	Data   []uint16
}

// parseWord parses a hexadecimal token, with an optional 0x prefix.
// Values wider than 16 bits are truncated.
func parseWord(token string) (value uint16, ok bool) {
	digits := token
	negative := false
	switch {
	case strings.HasPrefix(digits, "-"):
		negative = true
		digits = digits[1:]
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	}
	if len(digits) > 2 && (digits[:2] == "0x" || digits[:2] == "0X") {
		digits = digits[2:]
	}

	v64, err := strconv.ParseUint(digits, 16, 64)
	if err != nil {
		return
	}
	if negative {
		v64 = -v64
	}

	value = uint16(v64)
	ok = true
	return
}

// Open loads the image from a file.
func (rom *Rom) Open(path string) (err error) {
	inf, err := os.Open(path)
	if err != nil {
		err = &ErrImageOpen{Path: path, Err: err}
		return
	}
	defer inf.Close()

	return rom.Unmarshal(inf)
}

// Unmarshal loads the image from a reader, replacing any existing data.
// The first token is the origin, each following token is the next word.
// Reading stops at the end of input, or at the first token that is not
// a hexadecimal word.
func (rom *Rom) Unmarshal(input io.Reader) (err error) {
	scanner := bufio.NewScanner(input)
	scanner.Split(bufio.ScanWords)

	rom.Origin = 0
	rom.Data = nil

	if !scanner.Scan() {
		err = scanner.Err()
		if err == nil {
			err = ErrImageEmpty
		}
		return
	}

	origin, ok := parseWord(scanner.Text())
	if !ok {
		err = ErrImageOrigin(scanner.Text())
		return
	}
	rom.Origin = origin

	for scanner.Scan() {
		word, ok := parseWord(scanner.Text())
		if !ok {
			if rom.Strict {
				err = ErrImageWord{Index: len(rom.Data), Token: scanner.Text()}
			}
			return
		}
		rom.Data = append(rom.Data, word)
	}

	err = scanner.Err()

	return
}

// Marshal writes the image to a writer, one word per line.
func (rom *Rom) Marshal(output io.Writer) (err error) {
	w := bufio.NewWriter(output)

	_, err = fmt.Fprintf(w, "%04X\n", rom.Origin)
	if err != nil {
		return
	}

	for _, word := range rom.Data {
		_, err = fmt.Fprintf(w, "%04X\n", word)
		if err != nil {
			return
		}
	}

	return w.Flush()
}

// Words returns the address and value of each word in the image. Addresses
// wrap at the end of memory.
func (rom *Rom) Words() iter.Seq2[uint16, uint16] {
	return func(yield func(addr uint16, value uint16) bool) {
		addr := rom.Origin
		for _, word := range rom.Data {
			if !yield(addr, word) {
				return
			}
			addr++
		}
	}
}
