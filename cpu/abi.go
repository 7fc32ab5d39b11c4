package cpu

import (
	"strconv"
	"strings"
)

const (
	REG_ZERO  = 0  // Hard-wired zero.
	REG_RA    = 1  // Return address.
	REG_SP    = 2  // Stack pointer.
	REG_A0    = 10 // First argument / return value.
	REG_A1    = 11 // Second argument / return value.
	REG_COUNT = 32 // Number of integer registers.
)

// Standard calling convention names of the integer registers.
var _abi_names = [REG_COUNT]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// AbiName returns the calling convention name of register reg.
func AbiName(reg int) string {
	if reg < 0 || reg >= REG_COUNT {
		return ""
	}
	return _abi_names[reg]
}

// AbiNames returns the calling convention names of all registers, by index.
func AbiNames() [REG_COUNT]string {
	return _abi_names
}

// AbiRegister returns the register index for an architectural (x0-x31)
// or calling convention name.
func AbiRegister(name string) (reg int, ok bool) {
	if num, found := strings.CutPrefix(name, "x"); found {
		n, err := strconv.Atoi(num)
		if err == nil && n >= 0 && n < REG_COUNT && strconv.Itoa(n) == num {
			return n, true
		}
		return
	}

	if name == "fp" {
		return 8, true
	}

	for n, abi := range _abi_names {
		if abi == name {
			return n, true
		}
	}

	return
}
