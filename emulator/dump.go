package emulator

import (
	"fmt"
	"io"
	"strings"

	"github.com/ezrec/rvemu/cpu"
)

const (
	_ansi_red   = "\033[01;31m"
	_ansi_green = "\033[01;32m"
	_ansi_reset = "\033[0m"

	_dump_name_width = 10
)

func paint(color bool, ansi string, text string) string {
	if !color {
		return text
	}

	return ansi + text + _ansi_reset
}

// dumpRegister formats a single register as `x1(ra) = 0x0000000000000000(0)`,
// right aligned on the `=`.
func dumpRegister(reg int, value uint64, color bool) string {
	abi := "(" + cpu.AbiName(reg) + ")"
	name := fmt.Sprintf("x%d", reg)

	pad := max(0, _dump_name_width-len(name)-len(abi))

	return strings.Repeat(" ", pad) + name + paint(color, _ansi_red, abi) +
		fmt.Sprintf(" = 0x%016x", value) +
		paint(color, _ansi_green, fmt.Sprintf("(%d)", value))
}

// DumpRegisters writes the register file, two registers per row.
// If color is set, ANSI color escapes highlight the ABI names and decimal values.
func (emu *Emulator) DumpRegisters(w io.Writer, color bool) (err error) {
	var regs [cpu.REG_COUNT]uint64
	if emu.Cpu != nil {
		regs = emu.Cpu.Regs
	}

	rule := strings.Repeat("-", 90)

	var sb strings.Builder
	sb.WriteString(rule + "\n")
	for reg := 0; reg < cpu.REG_COUNT; reg += 2 {
		sb.WriteString(dumpRegister(reg, regs[reg], color))
		sb.WriteString(strings.Repeat(" ", _dump_name_width))
		sb.WriteString(dumpRegister(reg+1, regs[reg+1], color))
		sb.WriteString("\n")
	}
	sb.WriteString(rule + "\n")

	_, err = io.WriteString(w, sb.String())

	return
}

// DumpPc writes the program counter.
func (emu *Emulator) DumpPc(w io.Writer, color bool) (err error) {
	var pc uint64
	if emu.Cpu != nil {
		pc = emu.Cpu.Pc
	}

	rule := strings.Repeat("-", 80)

	_, err = fmt.Fprintf(w, "%s\nPC register\n%s0x%x\n%s\n",
		rule, paint(color, _ansi_green, "PC = "), pc, rule)

	return
}
