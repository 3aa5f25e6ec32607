package mmu

import (
	"github.com/ezrec/rvhart/translate"
)

var f = translate.From

// ErrRange reports an image that does not fit in RAM.
type ErrRange struct {
	Address uint32
	Size    int
}

func (err *ErrRange) Error() string {
	return f("0x%08x+0x%x is outside of RAM", err.Address, err.Size)
}
