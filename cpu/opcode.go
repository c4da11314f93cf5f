package cpu

import (
	"fmt"
)

// Opcode is the operation selected by the top four bits of an instruction.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_BR   = Opcode(0)  // BR
	OP_ADD  = Opcode(1)  // ADD
	OP_LD   = Opcode(2)  // LD
	OP_ST   = Opcode(3)  // ST
	OP_JSR  = Opcode(4)  // JSR
	OP_AND  = Opcode(5)  // AND
	OP_LDR  = Opcode(6)  // LDR
	OP_STR  = Opcode(7)  // STR
	OP_RTI  = Opcode(8)  // RTI
	OP_NOT  = Opcode(9)  // NOT
	OP_LDI  = Opcode(10) // LDI
	OP_STI  = Opcode(11) // STI
	OP_JMP  = Opcode(12) // JMP
	OP_RES  = Opcode(13) // RES
	OP_LEA  = Opcode(14) // LEA
	OP_TRAP = Opcode(15) // TRAP
)

// TrapVector is the service selected by a TRAP instruction.
type TrapVector uint8

const (
	TRAP_GETC = TrapVector(0x20) // Read a character into R0.
	TRAP_OUT  = TrapVector(0x21) // Write the character in R0.
	TRAP_PUTS = TrapVector(0x22) // Write the string addressed by R0.
	TRAP_HALT = TrapVector(0x25) // Stop the CPU.
)

var trapNames = map[TrapVector]string{
	TRAP_GETC: "GETC",
	TRAP_OUT:  "OUT",
	TRAP_PUTS: "PUTS",
	TRAP_HALT: "HALT",
}

func (tv TrapVector) String() string {
	name, ok := trapNames[tv]
	if !ok {
		name = fmt.Sprintf("x%02X", uint8(tv))
	}
	return name
}

// Condition code bits, as tested by BR.
const (
	COND_P = uint16(1 << 0) // Positive
	COND_Z = uint16(1 << 1) // Zero
	COND_N = uint16(1 << 2) // Negative
)

// Code is a single 16-bit instruction word.
type Code uint16

// CODE_HALT is the instruction word of TRAP x25.
const CODE_HALT = Code(0xF025)

// SignExtend extends the low 'bits' bits of value to a full 16-bit two's
// complement word.
func SignExtend(value uint16, bits int) uint16 {
	value &= (1 << bits) - 1
	if (value>>(bits-1))&1 != 0 {
		value |= 0xffff << bits
	}
	return value
}

// Opcode returns the operation from the instruction word.
func (code Code) Opcode() Opcode {
	return Opcode((code >> 12) & 0xf)
}

// Dr returns the destination (or ST source) register field, bits [11:9].
func (code Code) Dr() int {
	return int((code >> 9) & 0x7)
}

// Sr1 returns the first source (or base) register field, bits [8:6].
func (code Code) Sr1() int {
	return int((code >> 6) & 0x7)
}

// Sr2 returns the second source register field, bits [2:0].
func (code Code) Sr2() int {
	return int(code & 0x7)
}

// IsImmediate reports whether an ADD/AND uses the imm5 operand.
func (code Code) IsImmediate() bool {
	return (code & 0x20) != 0
}

// IsOffset reports whether a JSR uses the PC offset (JSR) rather than a
// base register (JSRR).
func (code Code) IsOffset() bool {
	return (code & 0x0800) != 0
}

// Nzp returns the condition bits tested by BR, bits [11:9].
func (code Code) Nzp() uint16 {
	return uint16(code>>9) & 0x7
}

// Imm5 returns the sign extended 5-bit immediate.
func (code Code) Imm5() uint16 {
	return SignExtend(uint16(code), 5)
}

// Offset6 returns the sign extended 6-bit base offset.
func (code Code) Offset6() uint16 {
	return SignExtend(uint16(code), 6)
}

// PcOffset9 returns the sign extended 9-bit PC offset.
func (code Code) PcOffset9() uint16 {
	return SignExtend(uint16(code), 9)
}

// PcOffset11 returns the sign extended 11-bit PC offset.
func (code Code) PcOffset11() uint16 {
	return SignExtend(uint16(code), 11)
}

// TrapVector returns the trap vector, the low byte of the instruction.
func (code Code) TrapVector() TrapVector {
	return TrapVector(code & 0xff)
}

// MakeCodeOperate creates an ADD or AND with a register operand.
func MakeCodeOperate(op Opcode, dr, sr1, sr2 int) Code {
	return Code(uint16(op)<<12 | uint16(dr&7)<<9 | uint16(sr1&7)<<6 | uint16(sr2&7))
}

// MakeCodeOperateImm creates an ADD or AND with an immediate operand.
func MakeCodeOperateImm(op Opcode, dr, sr1 int, imm5 int) Code {
	return Code(uint16(op)<<12 | uint16(dr&7)<<9 | uint16(sr1&7)<<6 | 0x20 | uint16(imm5)&0x1f)
}

// MakeCodeNot creates a NOT.
func MakeCodeNot(dr, sr int) Code {
	return Code(uint16(OP_NOT)<<12 | uint16(dr&7)<<9 | uint16(sr&7)<<6 | 0x3f)
}

// MakeCodeBranch creates a BR with the given condition bits.
func MakeCodeBranch(nzp uint16, offset9 int) Code {
	return Code(uint16(OP_BR)<<12 | (nzp&7)<<9 | uint16(offset9)&0x1ff)
}

// MakeCodePcRelative creates an LD, LDI, LEA, ST or STI.
func MakeCodePcRelative(op Opcode, reg int, offset9 int) Code {
	return Code(uint16(op)<<12 | uint16(reg&7)<<9 | uint16(offset9)&0x1ff)
}

// MakeCodeBase creates an LDR or STR.
func MakeCodeBase(op Opcode, reg, base int, offset6 int) Code {
	return Code(uint16(op)<<12 | uint16(reg&7)<<9 | uint16(base&7)<<6 | uint16(offset6)&0x3f)
}

// MakeCodeJmp creates a JMP (RET when base is R7).
func MakeCodeJmp(base int) Code {
	return Code(uint16(OP_JMP)<<12 | uint16(base&7)<<6)
}

// MakeCodeJsr creates a JSR with an 11-bit PC offset.
func MakeCodeJsr(offset11 int) Code {
	return Code(uint16(OP_JSR)<<12 | 0x0800 | uint16(offset11)&0x7ff)
}

// MakeCodeJsrr creates a JSRR through a base register.
func MakeCodeJsrr(base int) Code {
	return Code(uint16(OP_JSR)<<12 | uint16(base&7)<<6)
}

// MakeCodeTrap creates a TRAP.
func MakeCodeTrap(vector TrapVector) Code {
	return Code(uint16(OP_TRAP)<<12 | uint16(vector))
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	op := code.Opcode()

	signed := func(value uint16) int16 { return int16(value) }

	switch op {
	case OP_BR:
		nzp := code.Nzp()
		cond := ""
		if nzp&COND_N != 0 {
			cond += "n"
		}
		if nzp&COND_Z != 0 {
			cond += "z"
		}
		if nzp&COND_P != 0 {
			cond += "p"
		}
		out = fmt.Sprintf("BR%v #%d", cond, signed(code.PcOffset9()))
	case OP_ADD, OP_AND:
		if code.IsImmediate() {
			out = fmt.Sprintf("%v R%d, R%d, #%d", op, code.Dr(), code.Sr1(), signed(code.Imm5()))
		} else {
			out = fmt.Sprintf("%v R%d, R%d, R%d", op, code.Dr(), code.Sr1(), code.Sr2())
		}
	case OP_NOT:
		out = fmt.Sprintf("NOT R%d, R%d", code.Dr(), code.Sr1())
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		out = fmt.Sprintf("%v R%d, #%d", op, code.Dr(), signed(code.PcOffset9()))
	case OP_LDR, OP_STR:
		out = fmt.Sprintf("%v R%d, R%d, #%d", op, code.Dr(), code.Sr1(), signed(code.Offset6()))
	case OP_JMP:
		if code.Sr1() == 7 {
			out = "RET"
		} else {
			out = fmt.Sprintf("JMP R%d", code.Sr1())
		}
	case OP_JSR:
		if code.IsOffset() {
			out = fmt.Sprintf("JSR #%d", signed(code.PcOffset11()))
		} else {
			out = fmt.Sprintf("JSRR R%d", code.Sr1())
		}
	case OP_TRAP:
		out = fmt.Sprintf("TRAP x%02X", uint8(code.TrapVector()))
	default:
		out = fmt.Sprintf(".FILL x%04X", uint16(code))
	}

	return
}
