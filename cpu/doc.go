// Package cpu implements the RV64 processor core and its assembler.
//
// The core consists of a program counter, thirty-two 64-bit integer
// registers (x0-x31, with x0 hard-wired to zero), and a bus to the memory
// bank. Each cycle the caller fetches a 32-bit instruction word at the
// program counter, executes it, and stores the returned next program
// counter. Faults are returned as exception.Exception errors.
//
// The assembler accepts a small RISC-V assembly dialect, supporting
// labels, equates, macros, and compile-time $(...) expression evaluation,
// and produces a flat little-endian image loadable at the memory base.
package cpu
