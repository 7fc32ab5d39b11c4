// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package bus

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/rvemu/exception"
)

var _bus_defines = map[string]string{
	"DRAM_BASE": fmt.Sprintf("%#x", DRAM_BASE),
	"DRAM_SIZE": fmt.Sprintf("%#x", DRAM_SIZE),
	"DRAM_END":  fmt.Sprintf("%#x", DRAM_END),
}

// Device is a memory-mapped target of the bus.
// Addresses passed to a device are absolute bus addresses, and sizes are in bits.
type Device interface {
	// Load reads a value of size bits from addr.
	Load(addr uint64, size uint64) (value uint64, err error)
	// Store writes a value of size bits to addr.
	Store(addr uint64, size uint64, value uint64) (err error)
}

// Mapping is a device attached to the bus over [Base, Base+Size-1].
type Mapping struct {
	Base   uint64
	Size   uint64
	Device Device
}

// Contains returns true if addr lies within the mapping.
func (m *Mapping) Contains(addr uint64) bool {
	return addr >= m.Base && addr-m.Base < m.Size
}

// Bus routes loads and stores to the memory bank and attached devices.
type Bus struct {
	Verbose bool // Set to log device attachment.

	Dram *Dram // Memory bank.

	mapping []Mapping
}

// NewBus creates a bus with a memory bank of capacity bytes, pre-loaded with image.
func NewBus(image []byte, capacity uint64) (bus *Bus, err error) {
	dram, err := NewDram(image, capacity)
	if err != nil {
		return
	}

	bus = &Bus{
		Dram: dram,
	}
	bus.mapping = []Mapping{
		{Base: dram.Base, Size: dram.Capacity(), Device: dram},
	}

	return
}

// Defines for the memory map.
func (bus *Bus) Defines() iter.Seq2[string, string] {
	return maps.All(_bus_defines)
}

// Attach maps a device over [base, base+size-1].
func (bus *Bus) Attach(base uint64, size uint64, device Device) (err error) {
	if size == 0 || base+size-1 < base {
		err = ErrBusEmpty
		return
	}

	add := Mapping{Base: base, Size: size, Device: device}
	for _, m := range bus.mapping {
		if m.Contains(add.Base) || add.Contains(m.Base) {
			err = errors.Join(ErrBusOverlap, fmt.Errorf("0x%x", base))
			return
		}
	}

	if bus.Verbose {
		log.Printf("bus: attach 0x%x-0x%x %T", base, base+size-1, device)
	}

	bus.mapping = append(bus.mapping, add)

	return
}

// Mappings returns an iterator over the mapped address ranges.
func (bus *Bus) Mappings() iter.Seq[Mapping] {
	return func(yield func(m Mapping) bool) {
		for _, m := range bus.mapping {
			if !yield(m) {
				return
			}
		}
	}
}

// route finds the device mapped at addr.
func (bus *Bus) route(addr uint64) (device Device, ok bool) {
	for n := range bus.mapping {
		if bus.mapping[n].Contains(addr) {
			return bus.mapping[n].Device, true
		}
	}

	return
}

// Load reads a value of size bits from addr.
func (bus *Bus) Load(addr uint64, size uint64) (value uint64, err error) {
	device, ok := bus.route(addr)
	if !ok {
		err = errors.Join(exception.New(exception.LOAD_ACCESS_FAULT, addr), ErrBusUnmapped)
		return
	}

	return device.Load(addr, size)
}

// Store writes a value of size bits to addr.
func (bus *Bus) Store(addr uint64, size uint64, value uint64) (err error) {
	device, ok := bus.route(addr)
	if !ok {
		err = errors.Join(exception.New(exception.STORE_AMO_ACCESS_FAULT, addr), ErrBusUnmapped)
		return
	}

	return device.Store(addr, size, value)
}
