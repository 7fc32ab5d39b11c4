// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package bus

import (
	"errors"

	"github.com/ezrec/rvemu/exception"
)

const (
	DRAM_BASE = uint64(0)                 // Base address of the memory bank.
	DRAM_SIZE = uint64(1024 * 1024 * 128) // Size of the memory bank, 128MiB.
	DRAM_END  = DRAM_SIZE + DRAM_BASE - 1 // Last address of the memory bank.
)

// Dram is a byte addressable memory bank, pre-loaded with a program image.
type Dram struct {
	Base uint64 // Base address.
	Data []byte // Memory contents.
}

var _ Device = (*Dram)(nil)

// NewDram creates a zero-filled memory bank of capacity bytes at DRAM_BASE,
// with the image copied to its start.
func NewDram(image []byte, capacity uint64) (dram *Dram, err error) {
	if uint64(len(image)) > capacity {
		err = ErrImageTooLarge
		return
	}

	dram = &Dram{
		Base: DRAM_BASE,
		Data: make([]byte, capacity),
	}
	copy(dram.Data, image)

	return
}

// Capacity returns the size of the memory bank in bytes.
func (dram *Dram) Capacity() uint64 {
	return uint64(len(dram.Data))
}

// End returns the last address of the memory bank.
func (dram *Dram) End() uint64 {
	return dram.Base + dram.Capacity() - 1
}

// index translates an access into an index into Data.
func (dram *Dram) index(addr uint64, size uint64) (index uint64, nbytes uint64, err error) {
	switch size {
	case 8, 16, 32, 64:
		nbytes = size / 8
	default:
		err = ErrDramSize
		return
	}

	index = addr - dram.Base
	capacity := dram.Capacity()
	if addr < dram.Base || index > capacity || nbytes > capacity-index {
		err = ErrDramRange
		return
	}

	return
}

// Load reads a little-endian value of size bits (8, 16, 32 or 64) from addr.
func (dram *Dram) Load(addr uint64, size uint64) (value uint64, err error) {
	index, nbytes, err := dram.index(addr, size)
	if err != nil {
		err = errors.Join(exception.New(exception.LOAD_ACCESS_FAULT, addr), err)
		return
	}

	for n := range nbytes {
		value |= uint64(dram.Data[index+n]) << (n * 8)
	}

	return
}

// Store writes a little-endian value of size bits (8, 16, 32 or 64) to addr.
func (dram *Dram) Store(addr uint64, size uint64, value uint64) (err error) {
	index, nbytes, err := dram.index(addr, size)
	if err != nil {
		err = errors.Join(exception.New(exception.STORE_AMO_ACCESS_FAULT, addr), err)
		return
	}

	for n := range nbytes {
		dram.Data[index+n] = byte((value >> (n * 8)) & 0xff)
	}

	return
}
