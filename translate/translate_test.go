package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	Use("en-US")
	assert.Equal("trap 0x0000002a", From("trap 0x%08x", 42))
	assert.Equal("line 7 'nop' bad", From("line %d '%v' %v", 7, "nop", "bad"))
	assert.Equal("breakpoint", From("breakpoint"))

	Use()
	assert.Equal("plain", From("plain"))
}

func TestFrom_Catalog(t *testing.T) {
	assert := assert.New(t)
	defer Use()

	Use("de-DE")
	assert.Equal("Haltepunkt", From("breakpoint"))
	assert.Equal("Trap Haltepunkt, 0x00000010", From("trap %v, 0x%08x", From("breakpoint"), 16))

	// Untranslated formats fall back to en-US text.
	assert.Equal("plain", From("plain"))

	Use("fr-FR", "de-DE")
	assert.Equal("Haltepunkt", From("breakpoint"))
}
