package main

import (
	"errors"

	"github.com/ezrec/rvhart/translate"
)

var f = translate.From

var (
	ErrNoImage        = errors.New(f("one of -i or -c is required"))
	ErrImageAndSource = errors.New(f("-i and -c are exclusive"))
	ErrSteps          = errors.New(f("-n must not be negative"))
	ErrTestFailed     = errors.New(f("test failed"))
)
