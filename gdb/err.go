package gdb

import (
	"errors"

	"github.com/ezrec/rvhart/translate"
)

var f = translate.From

var (
	ErrPacketSyntax = errors.New(f("packet syntax"))
)
