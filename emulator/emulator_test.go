package emulator

import (
	"bytes"
	"errors"
	stdio "io"
	"maps"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
)

const haltNotice = "\n --- halting the LC3 ---\n\n"

func TestEmulator(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	assert.False(emu.Verbose)
	assert.False(emu.Trace)
	assert.NotNil(emu.Cpu)
	assert.Equal(&emu.Tape, emu.Cpu.Console)
}

func doAssemble(emu *Emulator, program []string, input []byte, t *testing.T) (tape_output *bytes.Buffer) {
	asm := &cpu.Assembler{}
	err := emu.Assemble(asm, strings.NewReader(strings.Join(program, "\n")))
	assert.NoError(t, err)
	if err != nil {
		t.Fatal(err)
	}

	emu.Reset()

	emu.Tape.Input = bytes.NewReader(input)
	tape_output = &bytes.Buffer{}
	emu.Tape.Output = tape_output

	return
}

func doRunSingle(emu *Emulator, program []string, input []byte, t *testing.T) (output []byte) {
	assert := assert.New(t)

	tape_output := doAssemble(emu, program, input, t)

	for _, line := range emu.Program.Lines {
		here := program[line.LineNo-1]
		for c := range len(line.Codes) {
			if !emu.Cpu.Running {
				break
			}
			assert.Equal(line.LineNo, emu.LineNo(), here)
			assert.Equal(uint16(line.Address+c), emu.Cpu.Pc, here)
			assert.Equal(line.Codes[c], emu.Code(), here)
			_, err := emu.Tick()
			if err != nil {
				t.Log(emu.Cpu.String())
				t.Fatalf("%v", err)
			}
		}
	}
	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)

	output = tape_output.Bytes()
	return
}

func doRunBranch(emu *Emulator, program []string, input []byte, t *testing.T) (output []byte) {
	assert := assert.New(t)

	tape_output := doAssemble(emu, program, input, t)

	var done bool
	var err error
	for !done {
		line := emu.LineNo()
		if line == 0 {
			line = 1
		}
		done, err = emu.Tick()
		here := program[line-1]
		assert.NoError(err, here)
		if err != nil {
			t.Fatal(err)
		}
	}

	output = tape_output.Bytes()
	return
}

func TestEmulatorRegisters(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	program := []string{
		".ORIG x3000",
		"AND R0, R0, #0",
		"ADD R0, R0, #-3",
		"NOT R1, R0",
		"ADD R2, R0, R1",
		"LEA R3, DATA",
		"LDR R4, R3, #0",
		"ST R4, SAVE",
		"HALT",
		"DATA .FILL x1234",
		"SAVE .BLKW 1",
		".END",
	}

	output := doRunSingle(emu, program, nil, t)

	assert.Equal(haltNotice, string(output))
	assert.Equal(uint16(0xFFFD), emu.Cpu.Register[0])
	assert.Equal(uint16(0x0002), emu.Cpu.Register[1])
	assert.Equal(uint16(0xFFFF), emu.Cpu.Register[2])
	assert.Equal(uint16(0x3008), emu.Cpu.Register[3])
	assert.Equal(uint16(0x1234), emu.Cpu.Register[4])
	assert.Equal(uint16(0x1234), emu.Cpu.Memory[0x3009])
	assert.Equal(uint16(cpu.COND_P), emu.Cpu.Cond())
	assert.Equal(uint64(8), emu.Ticks())
	assert.Equal(uint16(0x3008), emu.Cpu.Pc)
}

func TestEmulatorHello(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	program := []string{
		".ORIG x3000",
		"LEA R0, MSG",
		"PUTS",
		"HALT",
		"MSG .STRINGZ \"Hello, World!\\n\"",
		".END",
	}

	output := doRunSingle(emu, program, nil, t)
	assert.Equal("Hello, World!\n"+haltNotice, string(output))
}

func TestEmulatorEcho(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	program := []string{
		".ORIG x3000",
		"LOOP: GETC",
		"OUT",
		"ADD R1, R0, #-10 ; newline?",
		"BRnp LOOP",
		"HALT",
		".END",
	}

	output := doRunBranch(emu, program, []byte("abc\nxyz"), t)
	assert.Equal("abc\n"+haltNotice, string(output))
	assert.Equal(uint64(4*4+1), emu.Ticks())
}

func TestEmulatorTrace(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	emu.Trace = true

	program := []string{
		".ORIG x3000",
		"HALT",
	}

	output := doRunBranch(emu, program, nil, t)
	assert.Equal("Registers: PC:3000 IR:0000 |"+
		" R0:0000 R1:0000 R2:0000 R3:0000 R4:0000 R5:0000 R6:0000 R7:0000\n"+
		haltNotice, string(output))
}

func TestEmulatorRuntimeError(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	program := []string{
		".ORIG x3000",
		"AND R0, R0, #0",
		"GETC",
		"HALT",
	}

	doAssemble(emu, program, nil, t)

	err := emu.Run()
	assert.ErrorIs(err, cpu.ErrConsoleInput)
	assert.ErrorIs(err, stdio.EOF)
	assert.ErrorIs(err, cpu.ErrOpcode(0))

	var runtime *ErrRuntime
	assert.True(errors.As(err, &runtime))
	assert.Equal(3, runtime.LineNo)
	assert.Equal(uint16(0x3001), runtime.Address)
	assert.True(emu.Cpu.Running)
}

func TestEmulatorImage(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()
	err := emu.Rom.Unmarshal(strings.NewReader("3000 5020 1025 F025"))
	assert.NoError(err)

	output := &bytes.Buffer{}
	emu.Tape.Output = output

	emu.Reset()
	assert.Equal(0, emu.LineNo())
	assert.Equal(cpu.Code(0x5020), emu.Code())

	err = emu.Run()
	assert.NoError(err)
	assert.Equal(uint16(5), emu.Cpu.Register[0])
	assert.Equal(uint64(3), emu.Ticks())
	assert.Equal(haltNotice, output.String())

	done, err := emu.Tick()
	assert.NoError(err)
	assert.True(done)
}

func TestEmulatorDefines(t *testing.T) {
	assert := assert.New(t)

	emu := NewEmulator()

	defines := maps.Collect(emu.Defines())
	assert.Equal("x3000", defines["USER_ORIGIN"])
	assert.Equal("0x25", defines["TRAP_HALT"])

	program := []string{
		".ORIG USER_ORIGIN",
		"TRAP TRAP_HALT",
	}

	output := doRunBranch(emu, program, nil, t)
	assert.Equal(haltNotice, string(output))
	assert.Equal(uint16(0x3000), emu.Rom.Origin)
}
