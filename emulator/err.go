package emulator

import (
	"errors"

	"github.com/ezrec/rvemu/translate"
)

var f = translate.From

var (
	ErrTickLimit = errors.New(f("tick limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	LineNo int
	Pc     uint64
	Err    error
}

func (err *ErrRuntime) Error() string {
	return f("line %d pc 0x%x: %v", err.LineNo, err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
