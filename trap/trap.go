// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package trap defines the synchronous exception and interrupt causes
// delivered to a RISC-V machine mode trap handler.
package trap

import (
	"github.com/ezrec/rvhart/translate"
)

var f = translate.From

// INTERRUPT_BIT is set in the cause value of every asynchronous interrupt.
const INTERRUPT_BIT = uint32(0x8000_0000)

// Cause is a trap cause, encoded as written to mcause.
type Cause uint32

const (
	INSTRUCTION_ADDRESS_MISALIGNED = Cause(0)
	INSTRUCTION_ACCESS_FAULT       = Cause(1)
	ILLEGAL_INSTRUCTION            = Cause(2)
	BREAKPOINT                     = Cause(3)
	LOAD_ADDRESS_MISALIGNED        = Cause(4)
	LOAD_ACCESS_FAULT              = Cause(5)
	STORE_ADDRESS_MISALIGNED       = Cause(6)
	STORE_ACCESS_FAULT             = Cause(7)
	ECALL_FROM_U_MODE              = Cause(8)
	ECALL_FROM_S_MODE              = Cause(9)
	ECALL_FROM_M_MODE              = Cause(11)
	INSTRUCTION_PAGE_FAULT         = Cause(12)
	LOAD_PAGE_FAULT                = Cause(13)
	STORE_PAGE_FAULT               = Cause(15)

	USER_SOFTWARE_INTERRUPT       = Cause(INTERRUPT_BIT + 0)
	SUPERVISOR_SOFTWARE_INTERRUPT = Cause(INTERRUPT_BIT + 1)
	MACHINE_SOFTWARE_INTERRUPT    = Cause(INTERRUPT_BIT + 3)
	USER_TIMER_INTERRUPT          = Cause(INTERRUPT_BIT + 4)
	SUPERVISOR_TIMER_INTERRUPT    = Cause(INTERRUPT_BIT + 5)
	MACHINE_TIMER_INTERRUPT       = Cause(INTERRUPT_BIT + 7)
	USER_EXTERNAL_INTERRUPT       = Cause(INTERRUPT_BIT + 8)
	SUPERVISOR_EXTERNAL_INTERRUPT = Cause(INTERRUPT_BIT + 9)
	MACHINE_EXTERNAL_INTERRUPT    = Cause(INTERRUPT_BIT + 11)
)

var causeName = map[Cause]string{
	INSTRUCTION_ADDRESS_MISALIGNED: "instruction address misaligned",
	INSTRUCTION_ACCESS_FAULT:       "instruction access fault",
	ILLEGAL_INSTRUCTION:            "illegal instruction",
	BREAKPOINT:                     "breakpoint",
	LOAD_ADDRESS_MISALIGNED:        "load address misaligned",
	LOAD_ACCESS_FAULT:              "load access fault",
	STORE_ADDRESS_MISALIGNED:       "store address misaligned",
	STORE_ACCESS_FAULT:             "store access fault",
	ECALL_FROM_U_MODE:              "environment call from U-mode",
	ECALL_FROM_S_MODE:              "environment call from S-mode",
	ECALL_FROM_M_MODE:              "environment call from M-mode",
	INSTRUCTION_PAGE_FAULT:         "instruction page fault",
	LOAD_PAGE_FAULT:                "load page fault",
	STORE_PAGE_FAULT:               "store page fault",
	USER_SOFTWARE_INTERRUPT:        "user software interrupt",
	SUPERVISOR_SOFTWARE_INTERRUPT:  "supervisor software interrupt",
	MACHINE_SOFTWARE_INTERRUPT:     "machine software interrupt",
	USER_TIMER_INTERRUPT:           "user timer interrupt",
	SUPERVISOR_TIMER_INTERRUPT:     "supervisor timer interrupt",
	MACHINE_TIMER_INTERRUPT:        "machine timer interrupt",
	USER_EXTERNAL_INTERRUPT:        "user external interrupt",
	SUPERVISOR_EXTERNAL_INTERRUPT:  "supervisor external interrupt",
	MACHINE_EXTERNAL_INTERRUPT:     "machine external interrupt",
}

// Interrupt is true for asynchronous causes.
func (c Cause) Interrupt() bool {
	return uint32(c)&INTERRUPT_BIT != 0
}

// Code returns the cause number without the interrupt bit.
func (c Cause) Code() uint32 {
	return uint32(c) &^ INTERRUPT_BIT
}

// Valid is true for the causes a hart may raise.
func (c Cause) Valid() (ok bool) {
	_, ok = causeName[c]
	return
}

func (c Cause) String() string {
	name, ok := causeName[c]
	if !ok {
		return f("cause(0x%08x)", uint32(c))
	}
	return f(name)
}

// Trap is a synchronous exception or interrupt request, with the value to
// be written to mtval.
type Trap struct {
	Cause Cause
	Value uint32
}

// New returns a trap as an error.
func New(cause Cause, value uint32) error {
	return &Trap{Cause: cause, Value: value}
}

func (t *Trap) Error() string {
	return f("trap %v, 0x%08x", t.Cause, t.Value)
}

// Is matches any trap with the same cause.
func (t *Trap) Is(err error) bool {
	other, ok := err.(*Trap)
	return ok && other.Cause == t.Cause
}
