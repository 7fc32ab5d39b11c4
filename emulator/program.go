package emulator

import (
	"io"

	"github.com/ezrec/rvemu/cpu"
)

// Assemble parses assembly source into the emulator's program.
// The emulator defines are available to the source as equates.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	asm := &cpu.Assembler{Verbose: emu.Verbose}
	for name, value := range emu.Defines() {
		asm.Predefine(name, value)
	}

	prog, err := asm.Parse(input)
	if err != nil {
		return
	}

	emu.Program = prog

	return
}
