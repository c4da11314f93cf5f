package translate

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	SetLanguage("en-US")

	assert.Equal("You must include a file.", From("You must include a file."))
	assert.Equal("x3000: halted", From("x%04X: %v", uint16(0x3000), "halted"))
	assert.Equal("line 12", From("line %d", 12))
}

func TestSetLanguage(t *testing.T) {
	assert := assert.New(t)

	SetLanguage()
	assert.Equal("R0:0005", From("R%d:%04X", 0, uint16(5)))

	SetLanguage("zz-ZZ", "en-GB")
	assert.Equal("R7:FFFF", From("R%d:%04X", 7, uint16(0xFFFF)))

	SetLanguage("en-US")
}

func TestFprintln(t *testing.T) {
	assert := assert.New(t)

	SetLanguage("en-US")

	output := &bytes.Buffer{}
	err := Fprintln(output, "Registers: %v", "PC:3000")
	assert.NoError(err)
	assert.Equal("Registers: PC:3000\n", output.String())
}
