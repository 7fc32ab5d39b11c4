package io

import (
	"errors"

	"github.com/ezrec/rvemu/translate"
)

var f = translate.From

var (
	// Device errors
	ErrUartSize = errors.New(f("uart access must be byte wide"))
)
