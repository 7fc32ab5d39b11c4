package cpu

import (
	"bytes"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/rvemu/bus"
	"github.com/ezrec/rvemu/exception"
)

const testCapacity = 1024

// newTestCpu creates a CPU with a small memory bank holding codes.
func newTestCpu(t *testing.T, codes ...Code) (cpu *Cpu) {
	prog := &Program{Opcodes: []Opcode{{LineNo: 1, Pc: bus.DRAM_BASE, Codes: codes}}}

	b, err := bus.NewBus(prog.Binary(), testCapacity)
	if err != nil {
		t.Fatal(err)
	}

	return NewCpuBus(b)
}

// step performs a single fetch/execute cycle, updating the program counter.
func step(cpu *Cpu) (err error) {
	inst, err := cpu.Fetch()
	if err != nil {
		return
	}

	next_pc, err := cpu.Execute(inst)
	if err != nil {
		return
	}

	cpu.Pc = next_pc
	return
}

func TestCpuNew(t *testing.T) {
	assert := assert.New(t)

	image := []byte{0x93, 0x0f, 0xa0, 0x02}
	cpu, err := NewCpu(image)
	assert.NoError(err)

	assert.Equal(bus.DRAM_BASE, cpu.Pc)
	assert.Equal(bus.DRAM_SIZE-1, cpu.Regs[REG_SP])
	for n, reg := range cpu.Regs {
		if n != REG_SP {
			assert.Equal(uint64(0), reg, "x%d", n)
		}
	}

	// Everything past the image is zero.
	assert.Equal(image, cpu.Bus.Dram.Data[:len(image)])
	assert.Equal(int(bus.DRAM_SIZE)-len(image), bytes.Count(cpu.Bus.Dram.Data, []byte{0}))

	_, err = NewCpu(make([]byte, bus.DRAM_SIZE+1))
	assert.ErrorIs(err, bus.ErrImageTooLarge)

	defines := map[string]string{}
	for key, val := range cpu.Defines() {
		defines[key] = val
	}
	assert.Equal("64", defines["XLEN"])
	assert.Equal("4", defines["INSTRUCTION_SIZE"])
}

func TestCpuAddiScenario(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, MakeCodeAddi(31, 0, 42))
	assert.Equal(uint64(testCapacity-1), cpu.Regs[REG_SP])

	inst, err := cpu.Fetch()
	assert.NoError(err)
	assert.Equal(uint32(0x02a00f93), inst)
	assert.Equal(bus.DRAM_BASE, cpu.Pc)

	next_pc, err := cpu.Execute(inst)
	assert.NoError(err)
	assert.Equal(bus.DRAM_BASE+4, next_pc)
	assert.Equal(uint64(42), cpu.Regs[31])

	// Execute never moves the program counter itself.
	assert.Equal(bus.DRAM_BASE, cpu.Pc)
}

func TestCpuAddScenario(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t,
		MakeCodeAddi(2, 0, 10),
		MakeCodeAddi(3, 0, 20),
		MakeCodeAdd(1, 2, 3),
	)

	for n := range 3 {
		assert.Equal(uint64(n*4), cpu.Pc)
		assert.NoError(step(cpu))
	}

	assert.Equal(uint64(30), cpu.Regs[1])
	assert.Equal(uint64(10), cpu.Regs[2])
	assert.Equal(uint64(20), cpu.Regs[3])
	assert.Equal(uint64(12), cpu.Pc)

	// The zero word that follows is not an instruction.
	err := step(cpu)
	assert.ErrorIs(err, exception.ILLEGAL_INSTRUCTION)
	assert.Equal(uint64(12), cpu.Pc)
}

func TestCpuAddi(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		rd     int
		rs1    int
		value  uint64
		imm    int64
		expect uint64
	}){
		{"zero", 5, 6, 0, 0, 0},
		{"positive", 5, 6, 100, 2047, 2147},
		{"negative", 5, 6, 100, -2048, 0xfffffffffffff864},
		{"minus_one", 5, 6, 1, -1, 0},
		{"wrap", 7, 7, 0xffffffffffffffff, 1, 0},
		{"wrap_down", 8, 9, 0, -1, 0xffffffffffffffff},
		{"top_bit", 10, 11, 0x7fffffffffffffff, 1, 0x8000000000000000},
		{"from_x0", 12, 0, 0, -42, 0xffffffffffffffd6},
	}

	for _, entry := range table {
		cpu := newTestCpu(t)
		if entry.rs1 != 0 {
			cpu.Regs[entry.rs1] = entry.value
		}

		next_pc, err := cpu.Execute(uint32(MakeCodeAddi(entry.rd, entry.rs1, entry.imm)))
		assert.NoError(err, entry.name)
		assert.Equal(uint64(4), next_pc, entry.name)
		assert.Equal(entry.expect, cpu.Regs[entry.rd], entry.name)
	}
}

func TestCpuAddiImmediates(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	values := []uint64{0, 1, 0x800, 0x7fffffffffffffff, 0xffffffffffffffff}

	for imm := int64(-2048); imm <= 2047; imm++ {
		for _, value := range values {
			cpu.Regs[9] = value
			_, err := cpu.Execute(uint32(MakeCodeAddi(4, 9, imm)))
			if !assert.NoError(err) {
				return
			}
			if !assert.Equal(value+uint64(imm), cpu.Regs[4], "imm %d value %#x", imm, value) {
				return
			}
		}
	}
}

func TestCpuAdd(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		a, b   uint64
		expect uint64
	}){
		{"small", 10, 20, 30},
		{"wrap", 0xffffffffffffffff, 2, 1},
		{"halves", 0x00000000ffffffff, 0xffffffff00000000, 0xffffffffffffffff},
		{"top", 0x8000000000000000, 0x8000000000000000, 0},
	}

	for _, entry := range table {
		cpu := newTestCpu(t)
		cpu.Regs[2] = entry.a
		cpu.Regs[3] = entry.b

		next_pc, err := cpu.Execute(uint32(MakeCodeAdd(1, 2, 3)))
		assert.NoError(err, entry.name)
		assert.Equal(uint64(4), next_pc, entry.name)
		assert.Equal(entry.expect, cpu.Regs[1], entry.name)
	}

	// Same source register twice, and in place.
	cpu := newTestCpu(t)
	cpu.Regs[5] = 21
	_, err := cpu.Execute(uint32(MakeCodeAdd(5, 5, 5)))
	assert.NoError(err)
	assert.Equal(uint64(42), cpu.Regs[5])
}

func TestCpuZeroRegister(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)

	_, err := cpu.Execute(uint32(MakeCodeAddi(0, 0, 5)))
	assert.NoError(err)
	assert.Equal(uint64(0), cpu.Regs[0])

	cpu.Regs[1] = 7
	_, err = cpu.Execute(uint32(MakeCodeAdd(0, 1, 1)))
	assert.NoError(err)
	assert.Equal(uint64(0), cpu.Regs[0])

	// A stray write to x0 is not observed by the next instruction.
	cpu.Regs[0] = 0xdead
	_, err = cpu.Execute(uint32(MakeCodeAdd(2, 0, 0)))
	assert.NoError(err)
	assert.Equal(uint64(0), cpu.Regs[2])
	assert.Equal(uint64(0), cpu.Regs[0])

	cpu.Regs[0] = 0xdead
	_, err = cpu.Execute(0)
	assert.Error(err)
	assert.Equal(uint64(0), cpu.Regs[0])
}

func TestCpuIllegal(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		inst   uint32
		opcode uint64
	}){
		{"zero", 0x00000000, 0x00},
		{"ones", 0xffffffff, 0x7f},
		{"load", 0x00013083, 0x03},
		{"lui", 0x000010b7, 0x37},
		{"ecall", 0x00000073, 0x73},
		{"addiw", 0x0010809b, 0x1b},
	}

	for _, entry := range table {
		cpu := newTestCpu(t)
		for n := range cpu.Regs {
			cpu.Regs[n] = uint64(n) * 0x0101010101010101
		}
		pre := cpu.Regs

		next_pc, err := cpu.Execute(entry.inst)
		assert.ErrorIs(err, exception.ILLEGAL_INSTRUCTION, entry.name)
		assert.Equal(uint64(0), next_pc, entry.name)

		exc, ok := exception.As(err)
		assert.True(ok, entry.name)
		assert.Equal(entry.opcode, exc.GetValue(), entry.name)
		assert.Equal(uint64(2), exc.GetCode(), entry.name)
		assert.True(exc.IsFatal(), entry.name)

		assert.Equal(pre[1:], cpu.Regs[1:], entry.name)
		assert.Equal(uint64(0), cpu.Regs[0], entry.name)
	}
}

func TestCpuFetch(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, MakeCodeAddi(1, 0, 1))

	for _, pc := range []uint64{testCapacity, testCapacity - 2, testCapacity + 4, 0x1000_0000, ^uint64(0) - 3} {
		cpu.Pc = pc
		inst, err := cpu.Fetch()
		assert.Equal(uint32(0), inst)
		assert.ErrorIs(err, exception.INSTRUCTION_ACCESS_FAULT, "pc 0x%x", pc)
		assert.ErrorIs(err, exception.LOAD_ACCESS_FAULT, "pc 0x%x", pc)

		exc, ok := exception.As(err)
		assert.True(ok)
		assert.Equal(exception.INSTRUCTION_ACCESS_FAULT, exc.Kind)
		assert.Equal(pc, exc.Value)
		assert.Equal(pc, cpu.Pc)
	}

	// Last whole word of memory is fetchable.
	cpu.Pc = testCapacity - 4
	inst, err := cpu.Fetch()
	assert.NoError(err)
	assert.Equal(uint32(0), inst)
}

// pageFault is a device that raises a page fault on every access.
type pageFault struct{}

func (pageFault) Load(addr uint64, size uint64) (uint64, error) {
	return 0, exception.New(exception.LOAD_PAGE_FAULT, addr)
}

func (pageFault) Store(addr uint64, size uint64, value uint64) error {
	return exception.New(exception.STORE_AMO_PAGE_FAULT, addr)
}

func TestCpuFetchPageFault(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	assert.NoError(cpu.Bus.Attach(0x2000, 0x1000, pageFault{}))

	cpu.Pc = 0x2004
	_, err := cpu.Fetch()
	assert.ErrorIs(err, exception.INSTRUCTION_PAGE_FAULT)
	assert.ErrorIs(err, exception.LOAD_PAGE_FAULT)
	assert.NotErrorIs(err, exception.INSTRUCTION_ACCESS_FAULT)

	exc, ok := exception.As(err)
	assert.True(ok)
	assert.Equal(uint64(0x2004), exc.Value)
	assert.False(exc.IsFatal())
}

func TestCpuLogging(t *testing.T) {
	assert := assert.New(t)

	buf := &bytes.Buffer{}
	log.SetOutput(buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	cpu := newTestCpu(t)

	// Faults are returned, not logged.
	_, err := cpu.Execute(0)
	assert.Error(err)
	cpu.Pc = testCapacity
	_, err = cpu.Fetch()
	assert.Error(err)
	_, err = cpu.Load(testCapacity, 8)
	assert.Error(err)
	assert.Error(cpu.Store(testCapacity, 8, 0))
	assert.Equal("", buf.String())

	cpu.Verbose = true
	cpu.Pc = 0
	_, err = cpu.Execute(0)
	assert.Error(err)
	assert.Contains(buf.String(), "cpu: execute 0x00000000 at 0x0")
}

func TestCpuLoadStore(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t, MakeCodeAddi(31, 0, 42))

	value, err := cpu.Load(0, 32)
	assert.NoError(err)
	assert.Equal(uint64(MakeCodeAddi(31, 0, 42)), value)

	assert.NoError(cpu.Store(0x100, 64, 0x1122334455667788))
	value, err = cpu.Load(0x104, 32)
	assert.NoError(err)
	assert.Equal(uint64(0x11223344), value)

	value, err = cpu.Load(testCapacity, 32)
	assert.ErrorIs(err, exception.LOAD_ACCESS_FAULT)
	assert.Equal(uint64(0), value)

	before := bytes.Clone(cpu.Bus.Dram.Data)
	for _, addr := range []uint64{testCapacity, testCapacity - 1, ^uint64(0)} {
		err = cpu.Store(addr, 16, 0xffff)
		assert.ErrorIs(err, exception.STORE_AMO_ACCESS_FAULT)
	}
	assert.Equal(before, cpu.Bus.Dram.Data)

	_, err = cpu.Load(0, 12)
	assert.ErrorIs(err, exception.LOAD_ACCESS_FAULT)
	assert.ErrorIs(err, bus.ErrDramSize)
}

func TestCpuReg(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	cpu.Regs[0] = 0xdead
	cpu.Regs[31] = 42

	assert.Equal(uint64(0), cpu.Reg(0))
	assert.Equal(uint64(42), cpu.Reg(31))
	assert.Equal(uint64(testCapacity-1), cpu.Reg(REG_SP))
	assert.Equal(uint64(0), cpu.Reg(32))
	assert.Equal(uint64(0), cpu.Reg(-1))
}

func TestCpuUpdatePc(t *testing.T) {
	assert := assert.New(t)

	cpu := newTestCpu(t)
	cpu.Pc = 0x40

	assert.Equal(uint64(0x44), cpu.UpdatePc())
	assert.Equal(uint64(0x40), cpu.Pc)
}

func TestAbi(t *testing.T) {
	assert := assert.New(t)

	names := AbiNames()
	assert.Equal("zero", names[0])
	assert.Equal("sp", names[2])
	assert.Equal("s2", names[18])
	assert.Equal("t6", names[31])

	// The table is not shared with callers.
	names[0] = "bogus"
	assert.Equal("zero", AbiName(0))
	assert.Equal("", AbiName(32))
	assert.Equal("", AbiName(-1))

	for n, name := range AbiNames() {
		reg, ok := AbiRegister(name)
		assert.True(ok, name)
		assert.Equal(n, reg, name)
	}

	table := map[string]int{"x0": 0, "x31": 31, "fp": 8, "s0": 8, "a7": 17}
	for name, expect := range table {
		reg, ok := AbiRegister(name)
		assert.True(ok, name)
		assert.Equal(expect, reg, name)
	}

	for _, name := range []string{"x32", "x-1", "x01", "x", "r1", "", "sp0"} {
		_, ok := AbiRegister(name)
		assert.False(ok, name)
	}
}
