// Package cpu implements the processor and assembler for the LC-3 system.
//
// The CPU consists of a 16-bit program counter (PC), an instruction
// register (IR), eight 16-bit general-purpose registers (R0-R7), the
// N/Z/P condition codes, and 65536 words of memory shared by code and
// data. Each cycle fetches the word at PC, advances PC, and dispatches on
// the top four bits of the instruction. TRAP instructions are serviced by
// the CPU itself, bridging to a character I/O port.
//
// The assembler provides the LC-3 assembly language, extended with macros,
// equates, and compile-time expression evaluation.
package cpu
