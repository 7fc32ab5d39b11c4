package bus

import (
	"errors"

	"github.com/ezrec/rvemu/translate"
)

var f = translate.From

var (
	// Memory bank errors
	ErrDramRange     = errors.New(f("dram access out of range"))
	ErrDramSize      = errors.New(f("dram access size invalid"))
	ErrImageTooLarge = errors.New(f("image larger than dram"))

	// Bus errors
	ErrBusUnmapped = errors.New(f("address unmapped"))
	ErrBusOverlap  = errors.New(f("device range overlaps"))
	ErrBusEmpty    = errors.New(f("device range empty"))
)
