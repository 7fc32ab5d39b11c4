// Package io provides memory-mapped I/O devices that can be attached to
// the emulator's bus alongside the memory bank.
package io
