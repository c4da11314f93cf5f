package cpu

import (
	"errors"
	"log"

	"github.com/ezrec/lc3/io"
)

// doTrap services a TRAP instruction. Unknown vectors are ignored, unless
// the CPU is strict.
func (cpu *Cpu) doTrap(code Code) (err error) {
	vector := code.TrapVector()

	if cpu.Verbose {
		log.Printf("cpu: trap %v", vector)
	}

	switch vector {
	case TRAP_GETC:
		var value byte
		value, err = cpu.Console.ReadChar()
		if err != nil {
			err = errors.Join(ErrConsoleInput, err)
			return
		}
		cpu.Register[0] = uint16(value)
	case TRAP_OUT:
		err = cpu.Console.WriteChar(byte(cpu.Register[0]))
	case TRAP_PUTS:
		for addr := cpu.Register[0]; cpu.Memory[addr] != 0; addr++ {
			err = cpu.Console.WriteChar(byte(cpu.Memory[addr]))
			if err != nil {
				break
			}
		}
	case TRAP_HALT:
		cpu.Running = false
		err = io.WriteString(cpu.Console, f("\n --- halting the LC3 ---\n\n"))
	default:
		if cpu.Strict {
			err = ErrTrapVector
		}
		return
	}

	if err != nil && !errors.Is(err, ErrConsoleInput) {
		err = errors.Join(ErrConsoleOutput, err)
	}

	return
}
