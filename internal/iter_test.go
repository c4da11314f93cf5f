package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIterSeq2Concat(t *testing.T) {
	assert := assert.New(t)

	first := map[string]string{"TRAP_HALT": "0x25"}
	second := map[string]string{"USER_ORIGIN": "x3000", "TRAP_HALT": "0x26"}

	keys := []string{}
	for key := range IterSeq2Concat(maps.All(first), maps.All(second)) {
		keys = append(keys, key)
	}
	assert.Len(keys, 3)

	// Later sequences override earlier ones when collected.
	all := maps.Collect(IterSeq2Concat(maps.All(first), maps.All(second)))
	assert.Equal("0x26", all["TRAP_HALT"])
	assert.Equal("x3000", all["USER_ORIGIN"])

	count := 0
	for range IterSeq2Concat(maps.All(second), maps.All(first)) {
		count++
		break
	}
	assert.Equal(1, count)

	assert.Empty(maps.Collect(IterSeq2Concat[string, string]()))
}
