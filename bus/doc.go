// Package bus implements the emulated physical memory and the address
// routing layer between the processor core and memory.
//
// A Bus owns a single Dram memory bank mapped at DRAM_BASE, and may
// additionally route address ranges to other memory-mapped Devices.
// Every access outside the mapped ranges raises an access fault from the
// exception package, before any device is touched.
package bus
