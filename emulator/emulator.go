// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/rvemu/bus"
	"github.com/ezrec/rvemu/cpu"
	"github.com/ezrec/rvemu/exception"
	"github.com/ezrec/rvemu/internal"
	"github.com/ezrec/rvemu/io"
)

//go:generate go tool stringer -linecomment -type=State

// State of the execution loop.
type State int

const (
	STATE_HALTED  = State(iota) // halted
	STATE_RUNNING               // running
)

var _emulator_defines = map[string]string{
	"STATE_HALTED":  fmt.Sprintf("%d", STATE_HALTED),
	"STATE_RUNNING": fmt.Sprintf("%d", STATE_RUNNING),
}

// Emulator state. CPU + memory bank + UART.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Uart    io.Uart // UART device.
	UseUart bool    // If set, the UART is attached to the bus on Reset.

	Capacity uint64 // Memory bank size, in bytes.
	Recover  bool   // If set, non-fatal faults are skipped instead of halting.

	State State // Execution state.
	Ticks int   // Fetch attempts since the last Reset.
}

// NewEmulator creates a new, halted, emulator.
// Reset must be called before the emulator can run.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Program:  &cpu.Program{},
		Capacity: bus.DRAM_SIZE,
		State:    STATE_HALTED,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		(*bus.Bus)(nil).Defines(),
		emu.Cpu.Defines(),
		emu.Uart.Defines(),
	)
}

// Reset the emulator with a fresh CPU and memory bank, holding image.
// If image is nil, the binary of the current program is used.
func (emu *Emulator) Reset(image []byte) (err error) {
	emu.State = STATE_HALTED
	emu.Ticks = 0

	if image == nil && emu.Program != nil {
		image = emu.Program.Binary()
	}

	b, err := bus.NewBus(image, emu.Capacity)
	if err != nil {
		return
	}
	b.Verbose = emu.Verbose

	if emu.UseUart {
		emu.Uart.Rewind()
		err = b.Attach(io.UART_BASE, io.UART_SIZE, &emu.Uart)
		if err != nil {
			return
		}
	}

	if emu.Verbose {
		for m := range b.Mappings() {
			log.Printf("emulator: map 0x%x-0x%x %T", m.Base, m.Base+m.Size-1, m.Device)
		}
	}

	emu.Cpu = cpu.NewCpuBus(b)
	emu.Cpu.Verbose = emu.Verbose
	emu.State = STATE_RUNNING

	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	if emu.Cpu == nil || emu.Program == nil {
		return 0
	}

	return emu.Program.LineNo(emu.Cpu.Pc)
}

// Tick performs a single fetch and execute cycle of the emulator.
// done is set once the emulator has halted; a fault that halts the emulator
// is returned as an ErrRuntime. Once halted, Tick returns done with no error.
func (emu *Emulator) Tick() (done bool, err error) {
	if emu.Cpu == nil || emu.State == STATE_HALTED {
		done = true
		return
	}

	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	lineno := emu.LineNo()
	defer func() {
		if err != nil {
			err = &ErrRuntime{LineNo: lineno, Pc: pc, Err: err}
			log.Printf("emulator: %v", err)
		}
	}()

	emu.Ticks++

	inst, err := emu.Cpu.Fetch()
	if err == nil {
		var next_pc uint64
		next_pc, err = emu.Cpu.Execute(inst)
		if err == nil {
			emu.Cpu.Pc = next_pc
			return
		}
	}

	if emu.Recover && emu.recoverable(err) {
		log.Printf("emulator: skipping line %d pc 0x%x: %v", lineno, pc, err)
		emu.Cpu.Pc = emu.Cpu.UpdatePc()
		err = nil
		return
	}

	emu.State = STATE_HALTED
	done = true

	return
}

// recoverable returns true if err carries a fault that execution may resume past.
func (emu *Emulator) recoverable(err error) bool {
	exc, ok := exception.As(err)

	return ok && !exc.IsFatal()
}

// Run ticks the emulator until it halts, or until limit ticks have been
// performed. A limit of zero or less is unbounded.
// Returns ErrTickLimit if the emulator is still running at the limit.
func (emu *Emulator) Run(limit int) (ticks int, err error) {
	start := emu.Ticks
	defer func() {
		ticks = emu.Ticks - start
	}()

	for done := false; !done; {
		if limit > 0 && emu.Ticks-start >= limit {
			err = ErrTickLimit
			return
		}
		done, err = emu.Tick()
	}

	return
}
