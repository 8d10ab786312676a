// Package main provides the graphx command-line entry point.
//
// Usage:
//
//	graphx [options] <program.bin>
//
// The program image is loaded, executed to HALT or ERROR, and the result
// is reported on stdout. Exit code 0 means a clean halt; 1 means a load
// failure or a VM error.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/sarchlab/graphx/emu"
	"github.com/sarchlab/graphx/loader"
	"github.com/sarchlab/graphx/timing"
)

var (
	debug      = flag.Bool("debug", false, "Trace every executed instruction")
	timingMode = flag.Bool("timing", false, "Run the cycle-level timing simulation")
	memWords   = flag.Int("mem", 16, "Number of data memory words to dump on halt")
	maxClock   = flag.Uint64("max-clock", 0, "Abort after this many instructions (0 = no limit)")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: graphx [options] <program.bin>\n\nOptions:\n")
		flag.PrintDefaults()
		return 1
	}

	img, err := loader.Load(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load program: %v\n", err)
		return 1
	}

	opts := []emu.EmulatorOption{
		emu.WithProgram(img.Program),
		emu.WithGraph(&img.Graph),
		emu.WithMemoryImage(img.Memory),
		emu.WithMaxClock(*maxClock),
	}
	if *debug {
		logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			Level(zerolog.DebugLevel).
			With().Timestamp().Logger()
		opts = append(opts, emu.WithObserver(&emu.TraceObserver{Logger: logger}))
	}

	e := emu.NewEmulator(opts...)

	var (
		status emu.Status
		runErr error
		stats  timing.Stats
	)
	if *timingMode {
		stats, status, runErr = timing.Simulate(e, timing.DefaultConfig())
	} else {
		status, runErr = e.Run()
	}

	if status != emu.StatusHalt {
		inst := e.LastInstruction()
		fmt.Fprintf(os.Stderr, "VM error at PC=%d: %v\n", e.FaultPC(), runErr)
		fmt.Fprintf(os.Stderr, "  %s dest=%d src1=%d src2=%#x\n",
			inst.Op, inst.Dest, inst.Src1, inst.Src2)
		return 1
	}

	fmt.Printf("Program halted after %d instructions\n", e.RegFile().Clock)
	if *timingMode {
		fmt.Printf("Cycles: %d  CPI: %.2f\n", stats.Cycles, stats.CPI())
	}

	dumpMemory(e, *memWords)
	return 0
}

// dumpMemory prints the first n data memory words, eight per row.
func dumpMemory(e *emu.Emulator, n int) {
	if n <= 0 {
		return
	}
	if n > emu.MemorySize {
		n = emu.MemorySize
	}

	fmt.Println("Memory:")
	for i := 0; i < n; i += 8 {
		fmt.Printf("%6d:", i)
		for j := i; j < i+8 && j < n; j++ {
			fmt.Printf(" %11d", e.Memory().At(j))
		}
		fmt.Println()
	}
}
