package exception

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		kind  Kind
		code  uint64
		fatal bool
	}){
		{INSTRUCTION_ADDR_MISALIGNED, 0, true},
		{INSTRUCTION_ACCESS_FAULT, 1, true},
		{ILLEGAL_INSTRUCTION, 2, true},
		{BREAKPOINT, 3, false},
		{LOAD_ADDR_MISALIGNED, 4, false},
		{LOAD_ACCESS_FAULT, 5, true},
		{STORE_AMO_ADDR_MISALIGNED, 6, true},
		{STORE_AMO_ACCESS_FAULT, 7, true},
		{ECALL_FROM_U_MODE, 8, false},
		{ECALL_FROM_S_MODE, 9, false},
		{ECALL_FROM_M_MODE, 11, false},
		{INSTRUCTION_PAGE_FAULT, 12, false},
		{LOAD_PAGE_FAULT, 13, false},
		{STORE_AMO_PAGE_FAULT, 15, false},
	}

	for _, entry := range table {
		name := entry.kind.String()
		assert.True(entry.kind.Valid(), name)
		assert.Equal(entry.code, entry.kind.Code(), name)
		assert.Equal(entry.fatal, entry.kind.IsFatal(), name)
	}

	bad := Kind(99)
	assert.False(bad.Valid())
	assert.Equal(^uint64(0), bad.Code())
	assert.Equal("Kind(99)", bad.String())
}

func TestException(t *testing.T) {
	assert := assert.New(t)

	exc := New(LOAD_ACCESS_FAULT, 0x8000000)
	assert.Equal(uint64(0x8000000), exc.GetValue())
	assert.Equal(uint64(5), exc.GetCode())
	assert.True(exc.IsFatal())
	assert.Contains(exc.Error(), "load access fault")
	assert.Contains(exc.Error(), "0x8000000")

	exc = New(BREAKPOINT, 0x40)
	assert.False(exc.IsFatal())
	assert.Equal(uint64(3), exc.GetCode())
}

func TestExceptionIs(t *testing.T) {
	assert := assert.New(t)

	var err error = New(ILLEGAL_INSTRUCTION, 0x7f)

	assert.ErrorIs(err, ILLEGAL_INSTRUCTION)
	assert.NotErrorIs(err, LOAD_ACCESS_FAULT)
	assert.ErrorIs(err, New(ILLEGAL_INSTRUCTION, 0x7f))
	assert.NotErrorIs(err, New(ILLEGAL_INSTRUCTION, 0x13))

	wrapped := fmt.Errorf("execute: %w", err)
	assert.ErrorIs(wrapped, ILLEGAL_INSTRUCTION)

	joined := errors.Join(errors.New("other"), New(STORE_AMO_ACCESS_FAULT, 0x10))
	exc, ok := As(joined)
	assert.True(ok)
	assert.Equal(STORE_AMO_ACCESS_FAULT, exc.Kind)
	assert.Equal(uint64(0x10), exc.Value)

	_, ok = As(errors.New("plain"))
	assert.False(ok)
}
