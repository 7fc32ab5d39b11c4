package cpu

import (
	"fmt"

	"github.com/ezrec/rvemu/exception"
)

// Major opcodes, bits [6:0] of an instruction word.
const (
	OPCODE_OP_IMM = uint32(0x13) // Register-immediate arithmetic.
	OPCODE_OP     = uint32(0x33) // Register-register arithmetic.
)

// CodeOp is a decoded instruction operation.
type CodeOp int

//go:generate go tool stringer -linecomment -type=CodeOp
const (
	OP_ILLEGAL = CodeOp(0) // illegal
	OP_ADDI    = CodeOp(1) // addi
	OP_ADD     = CodeOp(2) // add
)

// Code is a raw 32-bit instruction word.
type Code uint32

// Instruction is a decoded instruction word.
// Which fields are meaningful depends on Op.
type Instruction struct {
	Op     CodeOp
	Rd     int    // Destination register.
	Rs1    int    // First source register.
	Rs2    int    // Second source register.
	Funct3 uint32 // Minor opcode.
	Funct7 uint32 // R-type function.
	Imm    int64  // Sign-extended immediate.
}

// MakeCodeAddi creates an ADDI rd, rs1, imm instruction.
// Only the low 12 bits of the immediate are encoded.
func MakeCodeAddi(rd, rs1 int, imm int64) Code {
	return Code((uint32(imm)&0xfff)<<20 |
		(uint32(rs1)&0x1f)<<15 |
		(uint32(rd)&0x1f)<<7 |
		OPCODE_OP_IMM)
}

// MakeCodeAdd creates an ADD rd, rs1, rs2 instruction.
func MakeCodeAdd(rd, rs1, rs2 int) Code {
	return Code((uint32(rs2)&0x1f)<<20 |
		(uint32(rs1)&0x1f)<<15 |
		(uint32(rd)&0x1f)<<7 |
		OPCODE_OP)
}

// Opcode returns the major opcode.
func (code Code) Opcode() uint32 {
	return uint32(code) & 0x7f
}

// Rd returns the destination register index.
func (code Code) Rd() int {
	return int((uint32(code) >> 7) & 0x1f)
}

// Rs1 returns the first source register index.
func (code Code) Rs1() int {
	return int((uint32(code) >> 15) & 0x1f)
}

// Rs2 returns the second source register index.
func (code Code) Rs2() int {
	return int((uint32(code) >> 20) & 0x1f)
}

// Funct3 returns the minor opcode.
func (code Code) Funct3() uint32 {
	return (uint32(code) >> 12) & 0x7
}

// Funct7 returns the R-type function field.
func (code Code) Funct7() uint32 {
	return (uint32(code) >> 25) & 0x7f
}

// ImmI returns the sign-extended I-type immediate from bits [31:20].
func (code Code) ImmI() int64 {
	return int64(int32(uint32(code)&0xfff00000) >> 20)
}

// Decode decodes the instruction word.
// An unsupported opcode raises an ILLEGAL_INSTRUCTION exception with the opcode as its value.
func (code Code) Decode() (inst Instruction, err error) {
	inst = Instruction{
		Rd:     code.Rd(),
		Rs1:    code.Rs1(),
		Rs2:    code.Rs2(),
		Funct3: code.Funct3(),
		Funct7: code.Funct7(),
	}

	switch code.Opcode() {
	case OPCODE_OP_IMM:
		inst.Op = OP_ADDI
		inst.Imm = code.ImmI()
	case OPCODE_OP:
		inst.Op = OP_ADD
	default:
		inst.Op = OP_ILLEGAL
		err = exception.New(exception.ILLEGAL_INSTRUCTION, uint64(code.Opcode()))
	}

	return
}

// String returns the assembly language representation of this instruction.
func (code Code) String() (out string) {
	inst, _ := code.Decode()

	switch inst.Op {
	case OP_ADDI:
		out = fmt.Sprintf("%v x%d, x%d, %d", inst.Op, inst.Rd, inst.Rs1, inst.Imm)
	case OP_ADD:
		out = fmt.Sprintf("%v x%d, x%d, x%d", inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
	default:
		out = fmt.Sprintf(".word 0x%08x", uint32(code))
	}

	return
}
