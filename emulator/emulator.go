// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"errors"
	stdio "io"
	"iter"
	"maps"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/io"
)

var _emulator_defines = map[string]string{
	"USER_ORIGIN": "x3000",
}

// Emulator state. CPU + program image + console.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	Trace    bool         // If set, dumps the registers before each cycle.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Tape io.Tape // Default console.
	Rom  io.Rom  // Program image.
}

// NewEmulator creates a new emulator, with its console on the tape.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:     cpu.NewCpu(),
		Program: &cpu.Program{},
	}

	emu.Cpu.Console = &emu.Tape

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	asm := &cpu.Assembler{}
	return internal.IterSeq2Concat(maps.All(_emulator_defines), asm.Defines())
}

// Assemble parses assembly source into the program listing, and sets
// the image from it. The emulator defines are available to the source.
func (emu *Emulator) Assemble(asm *cpu.Assembler, source stdio.Reader) (err error) {
	for key, value := range _emulator_defines {
		asm.Predefine(key, value)
	}

	prog, err := asm.Parse(source)
	if err != nil {
		return
	}

	emu.Program = prog
	emu.Rom = *prog.Image()

	return
}

// Reset clears the CPU, loads the image, and starts at its origin.
// An assembled program listing replaces the image.
func (emu *Emulator) Reset() {
	if emu.Program != nil && len(emu.Program.Lines) != 0 {
		emu.Rom = *emu.Program.Image()
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()
	emu.Cpu.Load(&emu.Rom)
	emu.Cpu.Start(emu.Rom.Origin)
}

// Ticks returns the instructions executed since a reset.
func (emu *Emulator) Ticks() uint64 {
	return emu.Cpu.Count
}

// Code returns the current instruction code.
func (emu *Emulator) Code() cpu.Code {
	return cpu.Code(emu.Cpu.Memory[emu.Cpu.Pc])
}

// LineNo returns the source line number for the next instruction, or 0 if
// it was not assembled.
func (emu *Emulator) LineNo() int {
	if emu.Program == nil {
		return 0
	}

	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Line == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction cycle of the emulator.
// done is set once the CPU has halted.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if !emu.Cpu.Running {
		done = true
		return
	}

	address := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{Address: address, LineNo: lineno, Err: err}
		}
	}()

	if emu.Trace {
		err = io.WriteString(emu.Cpu.Console, f("Registers: %v\n", emu.Cpu.Registers()))
		if err != nil {
			err = errors.Join(cpu.ErrConsoleOutput, err)
			return
		}
	}

	err = emu.Cpu.Tick()
	if err != nil {
		return
	}

	done = !emu.Cpu.Running

	return
}

// Run ticks the emulator until the CPU halts or fails.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
