package main

import (
	"bytes"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/io"
)

// writeFile creates a file in a temporary directory.
func writeFile(t *testing.T, name string, text string) (path string) {
	path = filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(text), 0o644)
	assert.NoError(t, err)
	return
}

// emptyStdin is a console input that is not a terminal.
func emptyStdin(t *testing.T) (stdin *os.File) {
	stdin, err := os.Open(writeFile(t, "stdin", ""))
	assert.NoError(t, err)
	t.Cleanup(func() { stdin.Close() })
	return
}

func TestParseArgs(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		args []string
		opts options
	}){
		{[]string{"prog.obj"}, options{path: "prog.obj", input: "-", output: "-"}},
		{[]string{"prog.obj", "-r", "-c"}, options{path: "prog.obj", registers: true, count: true, input: "-", output: "-"}},
		{[]string{"-R", "prog.obj", "-strict"}, options{path: "prog.obj", trace: true, strict: true, input: "-", output: "-"}},
		{[]string{"-a", "-s", "out.obj", "prog.asm"}, options{path: "prog.asm", assemble: true, save: "out.obj", input: "-", output: "-"}},
		{[]string{"prog.obj", "-i", "in.txt", "-o", "out.txt"}, options{path: "prog.obj", input: "in.txt", output: "out.txt"}},
	}

	for _, entry := range table {
		opts, err := parseArgs(entry.args)
		assert.NoError(err, entry.args)
		assert.Equal(entry.opts, opts, entry.args)
	}
}

func TestParseArgsErrors(t *testing.T) {
	assert := assert.New(t)

	_, err := parseArgs(nil)
	assert.ErrorIs(err, ErrNoFile)
	assert.Equal("You must include a file.", err.Error())

	_, err = parseArgs([]string{"-c"})
	assert.ErrorIs(err, ErrNoFile)

	_, err = parseArgs([]string{"prog.obj", "extra", "-c"})
	var extra ErrArguments
	assert.ErrorAs(err, &extra)
	assert.Equal(ErrArguments{"extra", "-c"}, extra)
}

func TestRunImageMissing(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "missing.obj")
	output := &bytes.Buffer{}
	err := run(options{path: path, input: "-", output: "-"}, emptyStdin(t), output)

	var open *io.ErrImageOpen
	assert.ErrorAs(err, &open)
	assert.Equal(path, open.Path)
	assert.ErrorIs(err, fs.ErrNotExist)
	assert.Empty(output.String())
}

func TestRunImageBad(t *testing.T) {
	assert := assert.New(t)

	path := writeFile(t, "bad.obj", "origin 5020")
	err := run(options{path: path, input: "-", output: "-"}, emptyStdin(t), &bytes.Buffer{})

	var located *ErrPath
	assert.ErrorAs(err, &located)
	assert.Equal(path, located.Path)
	assert.ErrorIs(err, io.ErrImageOrigin("origin"))
}

func TestRunCount(t *testing.T) {
	assert := assert.New(t)

	// Count R0 down from xFFFF, for 131073 instructions.
	path := writeFile(t, "loop.obj", "3000 5020 103F 103F 0BFE F025")
	output := &bytes.Buffer{}
	err := run(options{path: path, count: true, registers: true, input: "-", output: "-"}, emptyStdin(t), output)
	assert.NoError(err)

	text := output.String()
	assert.True(strings.HasPrefix(text, "\n --- halting the LC3 ---\n\n"), text)
	assert.Contains(text, "Registers: PC:3005 IR:F025 | R0:0000 ")
	assert.True(strings.HasSuffix(text, "Total instructions executed: 131073\n"), text)
}

func TestRunInput(t *testing.T) {
	assert := assert.New(t)

	source := writeFile(t, "echo.asm", strings.Join([]string{
		".ORIG x3000",
		"GETC",
		"OUT",
		"HALT",
	}, "\n"))
	input := writeFile(t, "input.txt", "Q")
	output := filepath.Join(t.TempDir(), "output.txt")

	err := run(options{path: source, assemble: true, input: input, output: output}, emptyStdin(t), &bytes.Buffer{})
	assert.NoError(err)

	text, err := os.ReadFile(output)
	assert.NoError(err)
	assert.Equal("Q\n --- halting the LC3 ---\n\n", string(text))

	// End of input stops the run.
	err = run(options{path: source, assemble: true, input: "-", output: "-"}, emptyStdin(t), &bytes.Buffer{})
	assert.ErrorIs(err, cpu.ErrConsoleInput)
}

func TestRunSave(t *testing.T) {
	assert := assert.New(t)

	source := writeFile(t, "prog.asm", ".ORIG x3000\nAND R0, R0, #0\nHALT\n")
	save := filepath.Join(t.TempDir(), "prog.obj")

	output := &bytes.Buffer{}
	err := run(options{path: source, assemble: true, save: save, input: "-", output: "-"}, emptyStdin(t), output)
	assert.NoError(err)
	assert.Empty(output.String())

	text, err := os.ReadFile(save)
	assert.NoError(err)
	assert.Equal("3000\n5020\nF025\n", string(text))

	// The saved image runs.
	err = run(options{path: save, input: "-", output: "-"}, emptyStdin(t), output)
	assert.NoError(err)
	assert.Equal("\n --- halting the LC3 ---\n\n", output.String())
}

func TestRunAssembleError(t *testing.T) {
	assert := assert.New(t)

	source := writeFile(t, "bad.asm", "HALT\n")
	err := run(options{path: source, assemble: true, input: "-", output: "-"}, emptyStdin(t), &bytes.Buffer{})

	var located *ErrPath
	assert.ErrorAs(err, &located)
	assert.Equal(source, located.Path)
	assert.ErrorIs(err, cpu.ErrOrigMissing)
}
