// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package exception defines the hardware fault taxonomy raised by the
// memory bus and the processor core.
//
// A fault is an immutable Exception value pairing a Kind with the
// offending address or value. Exceptions travel as ordinary Go errors,
// so callers may test for a kind with errors.Is:
//
//	if errors.Is(err, exception.LOAD_ACCESS_FAULT) {
//		...
//	}
package exception

import (
	"errors"

	"github.com/ezrec/rvemu/translate"
)

var f = translate.From

// Kind is the class of a hardware fault.
type Kind int

//go:generate go tool stringer -linecomment -type=Kind
const (
	INSTRUCTION_ADDR_MISALIGNED = Kind(0)  // instruction address misaligned
	INSTRUCTION_ACCESS_FAULT    = Kind(1)  // instruction access fault
	ILLEGAL_INSTRUCTION         = Kind(2)  // illegal instruction
	BREAKPOINT                  = Kind(3)  // breakpoint
	LOAD_ADDR_MISALIGNED        = Kind(4)  // load address misaligned
	LOAD_ACCESS_FAULT           = Kind(5)  // load access fault
	STORE_AMO_ADDR_MISALIGNED   = Kind(6)  // store/AMO address misaligned
	STORE_AMO_ACCESS_FAULT      = Kind(7)  // store/AMO access fault
	ECALL_FROM_U_MODE           = Kind(8)  // environment call from U-mode
	ECALL_FROM_S_MODE           = Kind(9)  // environment call from S-mode
	ECALL_FROM_M_MODE           = Kind(10) // environment call from M-mode
	INSTRUCTION_PAGE_FAULT      = Kind(11) // instruction page fault
	LOAD_PAGE_FAULT             = Kind(12) // load page fault
	STORE_AMO_PAGE_FAULT        = Kind(13) // store/AMO page fault
)

// Trap cause codes, as reported in mcause.
var _kind_code = [...]uint64{
	INSTRUCTION_ADDR_MISALIGNED: 0,
	INSTRUCTION_ACCESS_FAULT:    1,
	ILLEGAL_INSTRUCTION:         2,
	BREAKPOINT:                  3,
	LOAD_ADDR_MISALIGNED:        4,
	LOAD_ACCESS_FAULT:           5,
	STORE_AMO_ADDR_MISALIGNED:   6,
	STORE_AMO_ACCESS_FAULT:      7,
	ECALL_FROM_U_MODE:           8,
	ECALL_FROM_S_MODE:           9,
	ECALL_FROM_M_MODE:           11,
	INSTRUCTION_PAGE_FAULT:      12,
	LOAD_PAGE_FAULT:             13,
	STORE_AMO_PAGE_FAULT:        15,
}

// Valid returns true if the kind is one of the defined fault kinds.
func (kind Kind) Valid() bool {
	return kind >= 0 && int(kind) < len(_kind_code)
}

// Code returns the trap cause code of the kind.
// Unknown kinds report the all-ones code.
func (kind Kind) Code() uint64 {
	if !kind.Valid() {
		return ^uint64(0)
	}

	return _kind_code[kind]
}

// IsFatal returns true if execution cannot be resumed after a fault of this kind.
func (kind Kind) IsFatal() bool {
	switch kind {
	case INSTRUCTION_ADDR_MISALIGNED,
		INSTRUCTION_ACCESS_FAULT,
		ILLEGAL_INSTRUCTION,
		LOAD_ACCESS_FAULT,
		STORE_AMO_ADDR_MISALIGNED,
		STORE_AMO_ACCESS_FAULT:
		return true
	}

	return false
}

// Error allows a Kind to be used as an errors.Is target.
func (kind Kind) Error() string {
	return kind.String()
}

// Exception is a raised fault, with its associated address or value.
type Exception struct {
	Kind  Kind
	Value uint64
}

var _ error = Exception{}

// New creates an exception of the given kind.
func New(kind Kind, value uint64) Exception {
	return Exception{Kind: kind, Value: value}
}

// GetValue returns the offending address or value.
func (exc Exception) GetValue() uint64 {
	return exc.Value
}

// GetCode returns the trap cause code.
func (exc Exception) GetCode() uint64 {
	return exc.Kind.Code()
}

// IsFatal returns true if the run cannot continue past this exception.
func (exc Exception) IsFatal() bool {
	return exc.Kind.IsFatal()
}

func (exc Exception) Error() string {
	return f("%v (cause %d) value 0x%x", exc.Kind.String(), exc.Kind.Code(), exc.Value)
}

// Is matches an identical Exception, or any Exception of the target Kind.
func (exc Exception) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return exc.Kind == t
	case Exception:
		return exc == t
	}

	return false
}

// As extracts the first Exception in an error tree.
func As(err error) (exc Exception, ok bool) {
	ok = errors.As(err, &exc)
	return
}
