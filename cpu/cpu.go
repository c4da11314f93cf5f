package cpu

import (
	"errors"
	"fmt"
	"log"

	"github.com/ezrec/lc3/io"
)

// Console is the character I/O port used by the TRAP service.
type Console io.Port

const (
	MEMORY_SIZE = 1 << 16 // Words of addressable memory.
	REGISTERS   = 8       // General purpose registers.
)

// Cpu is the simulation context for the LC-3 processor.
// A Cpu is owned by a single run, and is not safe for concurrent use.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.
	Strict  bool // Set to fault on unassigned opcodes and trap vectors.

	Console Console // Character port for the TRAP service.

	Pc       uint16              // Program counter.
	Ir       Code                // Instruction register.
	Register [REGISTERS]uint16   // Register bank.
	N, Z, P  bool                // Condition codes.
	Memory   [MEMORY_SIZE]uint16 // Code and data memory.
	Origin   uint16              // Load origin, where execution begins.
	Running  bool                // Set while the instruction cycle runs.
	Count    uint64              // Instructions fetched since Start.
}

// NewCpu creates a new CPU with a console that has no input and discards
// its output.
func NewCpu() (cpu *Cpu) {
	cpu = &Cpu{
		Console: &io.Tape{},
	}

	return
}

// Reset the CPU state.
// - Clears the registers, condition codes, and memory.
// - Zeros the instruction counter.
// - Leaves the CPU halted.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Register[:])
	clear(cpu.Memory[:])
	cpu.N, cpu.Z, cpu.P = false, false, false
	cpu.Pc = 0
	cpu.Ir = 0
	cpu.Origin = 0
	cpu.Running = false
	cpu.Count = 0
}

// Load copies a program image into memory and records its origin.
func (cpu *Cpu) Load(rom *io.Rom) {
	cpu.Origin = rom.Origin
	for addr, word := range rom.Words() {
		cpu.Memory[addr] = word
	}

	if cpu.Verbose {
		log.Printf("cpu: loaded %d words at x%04X", len(rom.Data), rom.Origin)
	}
}

// Start enters the running state at the origin.
func (cpu *Cpu) Start(origin uint16) {
	cpu.Pc = origin
	cpu.Count = 0
	cpu.Running = true
}

// Run starts the CPU at the origin, and ticks until it halts or an
// instruction fails. A program that never halts runs forever.
func (cpu *Cpu) Run(origin uint16) (err error) {
	cpu.Start(origin)

	for cpu.Running {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Cond returns the condition codes as the N/Z/P bits tested by BR.
func (cpu *Cpu) Cond() (nzp uint16) {
	if cpu.N {
		nzp |= COND_N
	}
	if cpu.Z {
		nzp |= COND_Z
	}
	if cpu.P {
		nzp |= COND_P
	}
	return
}

// Registers returns the one line register dump.
func (cpu *Cpu) Registers() (text string) {
	text = fmt.Sprintf("PC:%04X IR:%04X |", cpu.Pc, uint16(cpu.Ir))
	for n, val := range cpu.Register {
		text += fmt.Sprintf(" R%d:%04X", n, val)
	}

	return
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc", "ir",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
		"cond", "count",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%04X", cpu.Pc)
		case "ir":
			strval = fmt.Sprintf("%04X %v", uint16(cpu.Ir), cpu.Ir)
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7":
			val := cpu.Register[byte(reg[1]-'0')]
			strval = fmt.Sprintf("%04X (%d)", val, int16(val))
		case "cond":
			strval = "---"
			nzp := []byte(strval)
			if cpu.N {
				nzp[0] = 'n'
			}
			if cpu.Z {
				nzp[1] = 'z'
			}
			if cpu.P {
				nzp[2] = 'p'
			}
			strval = string(nzp)
		case "count":
			strval = fmt.Sprintf("%d", cpu.Count)
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Fetch reads the instruction at PC into IR, advances PC, and counts the
// cycle. An all-zero word is replaced by HALT, with a notice to the console.
// The returned code is valid even when writing the notice fails.
func (cpu *Cpu) Fetch() (code Code, err error) {
	code = Code(cpu.Memory[cpu.Pc])
	cpu.Ir = code
	cpu.Pc++
	cpu.Count++

	if code == 0 {
		if cpu.Verbose {
			log.Printf("%04x: zero instruction, halting", cpu.Pc-1)
		}
		code = CODE_HALT
		cpu.Ir = code
		err = io.WriteString(cpu.Console, f("\n --- Detected useless break statement in IR (x0000) --- "))
		if err != nil {
			err = errors.Join(ErrConsoleOutput, err)
		}
	}

	return
}

// Tick executes a single CPU instruction cycle.
func (cpu *Cpu) Tick() (err error) {
	if !cpu.Running {
		err = ErrHalted
		return
	}

	// A failed zero-word notice still executes the substituted HALT.
	code, ferr := cpu.Fetch()

	err = cpu.Execute(code)
	if ferr != nil {
		err = errors.Join(ferr, err)
	}

	return
}

// Execute executes a single decoded instruction. PC is expected to already
// address the following instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	defer func() {
		if err != nil {
			err = errors.Join(ErrOpcode(code), err)
		}
	}()
	if cpu.Verbose {
		log.Printf("%04x: %v", cpu.Pc-1, code)
	}

	cpu.Ir = code

	handler := handlers[code.Opcode()]
	if handler == nil {
		// RTI and the reserved opcode.
		if cpu.Strict {
			err = ErrOpcodeIllegal
		}
		return
	}

	err = handler(cpu, code)

	return
}
