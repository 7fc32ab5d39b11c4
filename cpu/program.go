package cpu

import (
	"encoding/binary"
	"iter"

	"github.com/ezrec/rvemu/bus"
)

// Opcode represents a line of assembled code with its source location and generated instructions.
type Opcode struct {
	LineNo int
	Pc     uint64
	Words  []string
	Codes  []Code
}

// Program is an assembled program, located at bus.DRAM_BASE.
type Program struct {
	Opcodes []Opcode
	Label   map[string]uint64
}

type Debug struct {
	*Opcode
	Index int
}

// Debug returns the opcode that generated the instruction at pc.
// The Opcode is nil if pc is outside of the program.
func (prog *Program) Debug(pc uint64) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if pc >= op.Pc && pc < op.Pc+uint64(len(op.Codes))*INSTRUCTION_SIZE {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int((pc - op.Pc) / INSTRUCTION_SIZE),
			}
			break
		}
	}

	return
}

// LineNo returns the source line of the instruction at pc, or 0 if unknown.
func (prog *Program) LineNo(pc uint64) int {
	dbg := prog.Debug(pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Codes returns an iterator over each instruction and its address.
func (prog *Program) Codes() iter.Seq2[uint64, Code] {
	return func(yield func(pc uint64, code Code) bool) {
		for _, op := range prog.Opcodes {
			for n, code := range op.Codes {
				if !yield(op.Pc+uint64(n)*INSTRUCTION_SIZE, code) {
					return
				}
			}
		}
	}
}

// Binary returns the little-endian memory image of the program,
// to be loaded at bus.DRAM_BASE.
func (prog *Program) Binary() (image []byte) {
	for pc, code := range prog.Codes() {
		offset := int(pc - bus.DRAM_BASE)
		if need := offset + INSTRUCTION_SIZE; need > len(image) {
			image = append(image, make([]byte, need-len(image))...)
		}
		binary.LittleEndian.PutUint32(image[offset:], uint32(code))
	}

	return
}
