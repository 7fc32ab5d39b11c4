// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"

	"github.com/ezrec/rvemu/bus"
	"github.com/ezrec/rvemu/exception"
)

const (
	XLEN             = 64 // Register width, in bits.
	INSTRUCTION_SIZE = 4  // Instruction width, in bytes.
)

var _cpu_defines = map[string]string{
	"XLEN":             fmt.Sprintf("%v", XLEN),
	"INSTRUCTION_SIZE": fmt.Sprintf("%v", INSTRUCTION_SIZE),
}

// Cpu is the simulation context for a single RV64 hart.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Regs [REG_COUNT]uint64 // Integer register file.
	Pc   uint64            // Program counter.

	Bus *bus.Bus // Bus to the memory bank.
}

// NewCpu creates a new CPU with a DRAM_SIZE memory bank pre-loaded with image.
func NewCpu(image []byte) (cpu *Cpu, err error) {
	b, err := bus.NewBus(image, bus.DRAM_SIZE)
	if err != nil {
		return
	}

	cpu = NewCpuBus(b)

	return
}

// NewCpuBus creates a new CPU attached to an existing bus.
// The stack pointer is set to the last address of the memory bank,
// and the program counter to its base.
func NewCpuBus(b *bus.Bus) (cpu *Cpu) {
	cpu = &Cpu{
		Bus: b,
		Pc:  b.Dram.Base,
	}

	cpu.Regs[REG_SP] = b.Dram.End()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reg returns the value of integer register reg.
// x0, and registers outside the register file, read as zero.
func (cpu *Cpu) Reg(reg int) uint64 {
	if reg <= REG_ZERO || reg >= REG_COUNT {
		return 0
	}

	return cpu.Regs[reg]
}

// Load reads a value of size bits from addr.
func (cpu *Cpu) Load(addr uint64, size uint64) (value uint64, err error) {
	value, err = cpu.Bus.Load(addr, size)
	if err != nil && cpu.Verbose {
		log.Printf("cpu: load: %v", err)
	}

	return
}

// Store writes a value of size bits to addr.
func (cpu *Cpu) Store(addr uint64, size uint64, value uint64) (err error) {
	err = cpu.Bus.Store(addr, size, value)
	if err != nil && cpu.Verbose {
		log.Printf("cpu: store: %v", err)
	}

	return
}

// Fetch fetches the instruction word at the program counter.
// The program counter is not modified.
// A bus fault is raised as an instruction page fault when the device
// reported a load page fault, and as an instruction access fault otherwise.
func (cpu *Cpu) Fetch() (inst uint32, err error) {
	value, err := cpu.Bus.Load(cpu.Pc, 32)
	if err != nil {
		kind := exception.INSTRUCTION_ACCESS_FAULT
		if errors.Is(err, exception.LOAD_PAGE_FAULT) {
			kind = exception.INSTRUCTION_PAGE_FAULT
		}
		err = errors.Join(exception.New(kind, cpu.Pc), err)
		if cpu.Verbose {
			log.Printf("cpu: fetch: %v", err)
		}
		return
	}

	inst = uint32(value)

	return
}

// UpdatePc returns the address of the sequentially next instruction.
func (cpu *Cpu) UpdatePc() uint64 {
	return cpu.Pc + INSTRUCTION_SIZE
}

// Execute executes a single instruction word, and returns the next program counter.
// On error no register other than x0 is modified.
// Faults are returned, and only logged when Verbose is set.
func (cpu *Cpu) Execute(inst uint32) (next_pc uint64, err error) {
	code := Code(inst)

	// x0 reads as zero before, and after, every instruction.
	cpu.Regs[REG_ZERO] = 0
	defer func() {
		cpu.Regs[REG_ZERO] = 0
		if err != nil && cpu.Verbose {
			log.Printf("cpu: execute 0x%08x at 0x%x: %v", inst, cpu.Pc, err)
		}
	}()

	op, err := code.Decode()
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("%08x: %v", cpu.Pc, code)
	}

	switch op.Op {
	case OP_ADDI:
		cpu.Regs[op.Rd] = cpu.Regs[op.Rs1] + uint64(op.Imm)
	case OP_ADD:
		cpu.Regs[op.Rd] = cpu.Regs[op.Rs1] + cpu.Regs[op.Rs2]
	default:
		err = exception.New(exception.ILLEGAL_INSTRUCTION, uint64(code.Opcode()))
		return
	}

	next_pc = cpu.UpdatePc()

	return
}
