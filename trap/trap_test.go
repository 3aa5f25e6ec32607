package trap

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvhart/translate"
)

func init() {
	translate.Use()
}

func TestCause(t *testing.T) {
	assert := assert.New(t)

	table := []struct {
		cause     Cause
		value     uint32
		interrupt bool
		name      string
	}{
		{INSTRUCTION_ADDRESS_MISALIGNED, 0, false, "instruction address misaligned"},
		{ILLEGAL_INSTRUCTION, 2, false, "illegal instruction"},
		{BREAKPOINT, 3, false, "breakpoint"},
		{ECALL_FROM_M_MODE, 11, false, "environment call from M-mode"},
		{STORE_PAGE_FAULT, 15, false, "store page fault"},
		{USER_SOFTWARE_INTERRUPT, 0x8000_0000, true, "user software interrupt"},
		{SUPERVISOR_SOFTWARE_INTERRUPT, 0x8000_0001, true, "supervisor software interrupt"},
		{MACHINE_SOFTWARE_INTERRUPT, 0x8000_0003, true, "machine software interrupt"},
		{USER_TIMER_INTERRUPT, 0x8000_0004, true, "user timer interrupt"},
		{MACHINE_TIMER_INTERRUPT, 0x8000_0007, true, "machine timer interrupt"},
		{SUPERVISOR_EXTERNAL_INTERRUPT, 0x8000_0009, true, "supervisor external interrupt"},
		{MACHINE_EXTERNAL_INTERRUPT, 0x8000_000b, true, "machine external interrupt"},
	}

	for _, entry := range table {
		assert.Equal(entry.value, uint32(entry.cause), entry.name)
		assert.Equal(entry.interrupt, entry.cause.Interrupt(), entry.name)
		assert.Equal(entry.name, entry.cause.String())
		assert.True(entry.cause.Valid(), entry.name)
		assert.Equal(entry.value&0x7fff_ffff, entry.cause.Code(), entry.name)
	}

	assert.False(Cause(10).Valid())
	assert.False(Cause(14).Valid())
	assert.Equal("cause(0x0000000a)", Cause(10).String())
}

func TestTrap(t *testing.T) {
	assert := assert.New(t)

	err := New(LOAD_ACCESS_FAULT, 0x7fff_ffff)
	assert.Equal("trap load access fault, 0x7fffffff", err.Error())

	wrapped := fmt.Errorf("step: %w", err)

	var tr *Trap
	assert.True(errors.As(wrapped, &tr))
	assert.Equal(LOAD_ACCESS_FAULT, tr.Cause)
	assert.Equal(uint32(0x7fff_ffff), tr.Value)

	assert.ErrorIs(wrapped, &Trap{Cause: LOAD_ACCESS_FAULT})
	assert.NotErrorIs(wrapped, &Trap{Cause: STORE_ACCESS_FAULT})
}

func TestCause_Translated(t *testing.T) {
	assert := assert.New(t)
	defer translate.Use()

	translate.Use("de-DE")
	assert.Equal("Haltepunkt", BREAKPOINT.String())
	assert.Equal("Trap unzulässiger Befehl, 0x00000000", New(ILLEGAL_INSTRUCTION, 0).Error())
	assert.Equal("user timer interrupt", USER_TIMER_INTERRUPT.String())
}
