package emulator

import (
	"errors"

	"github.com/ezrec/rvhart/translate"
)

var f = translate.From

var (
	ErrElfClass   = errors.New(f("not a 32-bit little endian ELF image"))
	ErrElfMachine = errors.New(f("not a RISC-V ELF image"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint32
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("pc 0x%08x %v", err.Pc, err.Err)
	}
	return f("pc 0x%08x line %v %v", err.Pc, err.LineNo, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

// ErrMemory reports a debugger access outside of RAM.
type ErrMemory struct {
	Address uint32
}

func (err *ErrMemory) Error() string {
	return f("0x%08x is outside of RAM", err.Address)
}
