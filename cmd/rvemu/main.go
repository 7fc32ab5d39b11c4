// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ezrec/rvemu/emulator"
	"github.com/ezrec/rvemu/internal"
	"github.com/ezrec/rvemu/translate"
)

func main() {
	var compile string
	var save string
	var uart bool
	var skip bool
	var color bool
	var limit int
	var defines bool
	var verbose bool

	flag.StringVar(&compile, "c", "", ".s file to assemble")
	flag.StringVar(&save, "s", "", "Save the memory image to a .bin file, do not execute")
	flag.BoolVar(&uart, "u", false, "Attach the UART to stdin and stdout")
	flag.BoolVar(&skip, "recover", false, "Skip non-fatal faults instead of halting")
	flag.BoolVar(&color, "color", false, "Colorize the register dump")
	flag.IntVar(&limit, "n", 0, "Maximum number of instructions to execute (0 is unlimited)")
	flag.BoolVar(&defines, "defines", false, "List the assembler predefines, and exit")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if verbose {
		log.Printf("rvemu: locale %v", translate.Language())
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.Recover = skip

	if defines {
		for name, value := range internal.IterSeq2Sorted(emu.Defines()) {
			fmt.Printf("%v = %v\n", name, value)
		}
		return
	}

	var image []byte

	switch {
	case len(compile) != 0 && flag.NArg() == 0:
		// Assemble a new program.
		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		err = emu.Assemble(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		image = emu.Program.Binary()
	case len(compile) == 0 && flag.NArg() == 1:
		var err error
		image, err = os.ReadFile(flag.Arg(0))
		if err != nil {
			log.Fatalf("%v: %v", flag.Arg(0), err)
		}
	default:
		log.Fatalf("usage: %v [options] (-c prog.s | image.bin)", os.Args[0])
	}

	if len(save) != 0 {
		err := os.WriteFile(save, image, 0o644)
		if err != nil {
			log.Fatalf("%v: %v", save, err)
		}
		return
	}

	if uart {
		emu.UseUart = true
		emu.Uart.Input = os.Stdin
		emu.Uart.Output = os.Stdout
	}

	err := emu.Reset(image)
	if err != nil {
		log.Fatalf("%v", err)
	}

	_, err = emu.Run(limit)
	if err != nil {
		log.Printf("%v", err)
	}

	err = emu.DumpRegisters(os.Stdout, color)
	if err != nil {
		log.Fatalf("%v", err)
	}

	err = emu.DumpPc(os.Stdout, color)
	if err != nil {
		log.Fatalf("%v", err)
	}
}
