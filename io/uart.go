// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package io

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/ezrec/rvemu/exception"
)

const (
	UART_BASE = uint64(0x1000_0000) // Base address of the UART.
	UART_SIZE = uint64(0x100)       // Size of the UART register window.

	UART_RHR = UART_BASE + 0 // Receive holding register (read).
	UART_THR = UART_BASE + 0 // Transmit holding register (write).
	UART_LSR = UART_BASE + 5 // Line status register (read).

	UART_LSR_RX = uint64(1 << 0) // Receive data ready.
	UART_LSR_TX = uint64(1 << 5) // Transmit holding register empty.

	UART_FIFO_SIZE = 16 // Receive FIFO depth.
)

// Uart is a byte-wide serial port, attached to the bus as a memory-mapped
// device. It reads received bytes from Input, and writes transmitted bytes
// to Output.
//
// Input is drained by a background receiver, started on the first read,
// so reading the line status register never blocks. Input must not be
// replaced after the first read. Reading the receive holding register waits for
// the next byte, or the end of Input.
//
// The device is only reachable through bus loads and stores; ADDI/ADD
// programs cannot address it.
type Uart struct {
	Input  io.Reader
	Output io.Writer

	rx chan byte // Bytes from the receiver.

	hasInput  bool
	lastInput byte
}

// Defines returns an iter of defines for the UART.
func (uart *Uart) Defines() iter.Seq2[string, string] {
	return maps.All(map[string]string{
		"UART_BASE":   fmt.Sprintf("%#x", UART_BASE),
		"UART_RHR":    fmt.Sprintf("%#x", UART_RHR),
		"UART_THR":    fmt.Sprintf("%#x", UART_THR),
		"UART_LSR":    fmt.Sprintf("%#x", UART_LSR),
		"UART_LSR_RX": fmt.Sprintf("%#x", UART_LSR_RX),
		"UART_LSR_TX": fmt.Sprintf("%#x", UART_LSR_TX),
	})
}

// Rewind drops any pending received byte.
func (uart *Uart) Rewind() {
	uart.hasInput = false
	uart.lastInput = 0
}

// receive copies input to rx, a byte at a time, until a read error.
func receive(input io.Reader, rx chan<- byte) {
	defer close(rx)

	var one [1]byte
	for {
		n, err := input.Read(one[:])
		if n == 1 {
			rx <- one[0]
		}
		if err != nil {
			return
		}
	}
}

// poll makes the next received byte pending, if one is not already.
// If wait is set, poll blocks until a byte arrives or the input ends.
func (uart *Uart) poll(wait bool) bool {
	if uart.hasInput || uart.Input == nil {
		return uart.hasInput
	}

	if uart.rx == nil {
		uart.rx = make(chan byte, UART_FIFO_SIZE)
		go receive(uart.Input, uart.rx)
	}

	var c byte
	var ok bool
	if wait {
		c, ok = <-uart.rx
	} else {
		select {
		case c, ok = <-uart.rx:
		default:
		}
	}

	if ok {
		uart.lastInput = c
		uart.hasInput = true
	}

	return uart.hasInput
}

// Load reads a UART register. Only byte-wide reads are permitted.
func (uart *Uart) Load(addr uint64, size uint64) (value uint64, err error) {
	if size != 8 {
		err = errors.Join(exception.New(exception.LOAD_ACCESS_FAULT, addr), ErrUartSize)
		return
	}

	switch addr {
	case UART_RHR:
		if uart.poll(true) {
			value = uint64(uart.lastInput)
			uart.hasInput = false
		}
	case UART_LSR:
		value = UART_LSR_TX
		if uart.poll(false) {
			value |= UART_LSR_RX
		}
	}

	return
}

// Store writes a UART register. Only byte-wide writes are permitted.
func (uart *Uart) Store(addr uint64, size uint64, value uint64) (err error) {
	if size != 8 {
		err = errors.Join(exception.New(exception.STORE_AMO_ACCESS_FAULT, addr), ErrUartSize)
		return
	}

	if addr == UART_THR && uart.Output != nil {
		_, err = uart.Output.Write([]byte{byte(value & 0xff)})
		if err != nil {
			err = errors.Join(exception.New(exception.STORE_AMO_ACCESS_FAULT, addr), err)
		}
	}

	return
}
