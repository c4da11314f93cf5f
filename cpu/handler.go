package cpu

// handler executes one decoded instruction against the CPU state.
type handler func(cpu *Cpu, code Code) error

// handlers dispatches on the opcode. RTI and the reserved opcode have no
// handler.
var handlers = [16]handler{
	OP_BR:   (*Cpu).doBr,
	OP_ADD:  (*Cpu).doAdd,
	OP_LD:   (*Cpu).doLd,
	OP_ST:   (*Cpu).doSt,
	OP_JSR:  (*Cpu).doJsr,
	OP_AND:  (*Cpu).doAnd,
	OP_LDR:  (*Cpu).doLdr,
	OP_STR:  (*Cpu).doStr,
	OP_NOT:  (*Cpu).doNot,
	OP_LDI:  (*Cpu).doLdi,
	OP_STI:  (*Cpu).doSti,
	OP_JMP:  (*Cpu).doJmp,
	OP_LEA:  (*Cpu).doLea,
	OP_TRAP: (*Cpu).doTrap,
}

// RelativeAddress returns PC plus a sign extended offset, wrapping at the
// end of memory. PC already addresses the next instruction.
func (cpu *Cpu) RelativeAddress(offset uint16) uint16 {
	return cpu.Pc + offset
}

// setCC updates the condition codes from the signed value of a register.
func (cpu *Cpu) setCC(dr int) {
	value := int16(cpu.Register[dr])
	cpu.N = value < 0
	cpu.Z = value == 0
	cpu.P = value > 0
}

// operand returns the second ADD/AND operand.
func (cpu *Cpu) operand(code Code) uint16 {
	if code.IsImmediate() {
		return code.Imm5()
	}
	return cpu.Register[code.Sr2()]
}

func (cpu *Cpu) doBr(code Code) error {
	if code.Nzp()&cpu.Cond() != 0 {
		cpu.Pc = cpu.RelativeAddress(code.PcOffset9())
	}
	return nil
}

func (cpu *Cpu) doAdd(code Code) error {
	dr := code.Dr()
	cpu.Register[dr] = cpu.Register[code.Sr1()] + cpu.operand(code)
	cpu.setCC(dr)
	return nil
}

func (cpu *Cpu) doAnd(code Code) error {
	dr := code.Dr()
	cpu.Register[dr] = cpu.Register[code.Sr1()] & cpu.operand(code)
	cpu.setCC(dr)
	return nil
}

func (cpu *Cpu) doNot(code Code) error {
	dr := code.Dr()
	cpu.Register[dr] = ^cpu.Register[code.Sr1()]
	cpu.setCC(dr)
	return nil
}

func (cpu *Cpu) doLd(code Code) error {
	dr := code.Dr()
	cpu.Register[dr] = cpu.Memory[cpu.RelativeAddress(code.PcOffset9())]
	cpu.setCC(dr)
	return nil
}

func (cpu *Cpu) doLdi(code Code) error {
	dr := code.Dr()
	cpu.Register[dr] = cpu.Memory[cpu.Memory[cpu.RelativeAddress(code.PcOffset9())]]
	cpu.setCC(dr)
	return nil
}

func (cpu *Cpu) doLdr(code Code) error {
	dr := code.Dr()
	cpu.Register[dr] = cpu.Memory[cpu.Register[code.Sr1()]+code.Offset6()]
	cpu.setCC(dr)
	return nil
}

func (cpu *Cpu) doLea(code Code) error {
	dr := code.Dr()
	cpu.Register[dr] = cpu.RelativeAddress(code.PcOffset9())
	cpu.setCC(dr)
	return nil
}

func (cpu *Cpu) doSt(code Code) error {
	cpu.Memory[cpu.RelativeAddress(code.PcOffset9())] = cpu.Register[code.Dr()]
	return nil
}

func (cpu *Cpu) doSti(code Code) error {
	cpu.Memory[cpu.Memory[cpu.RelativeAddress(code.PcOffset9())]] = cpu.Register[code.Dr()]
	return nil
}

func (cpu *Cpu) doStr(code Code) error {
	cpu.Memory[cpu.Register[code.Sr1()]+code.Offset6()] = cpu.Register[code.Dr()]
	return nil
}

func (cpu *Cpu) doJmp(code Code) error {
	cpu.Pc = cpu.Register[code.Sr1()]
	return nil
}

// doJsr saves the return address in R7 before reading the base register,
// so JSRR R7 continues at the following instruction.
func (cpu *Cpu) doJsr(code Code) error {
	cpu.Register[7] = cpu.Pc
	if code.IsOffset() {
		cpu.Pc = cpu.RelativeAddress(code.PcOffset11())
	} else {
		cpu.Pc = cpu.Register[code.Sr1()]
	}
	return nil
}
