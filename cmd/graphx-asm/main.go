// Package main provides the GraphX assembler command.
//
// Usage:
//
//	graphx-asm -o program.bin program.graphx
//
// The source sections (.code, .row_index, .col_index, .values, .mem) are
// assembled into the binary image format consumed by graphx.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/graphx/asm"
	"github.com/sarchlab/graphx/loader"
)

var output = flag.String("o", "program.bin", "Output image path")

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: graphx-asm [-o out.bin] <program.graphx>\n")
		return 1
	}

	src, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read source: %v\n", err)
		return 1
	}

	img, err := asm.Assemble(string(src))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Assembly failed: %v\n", err)
		return 1
	}

	f, err := os.Create(*output)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
		return 1
	}
	defer func() { _ = f.Close() }()

	if err := loader.Write(f, img); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write image: %v\n", err)
		return 1
	}

	fmt.Printf("Assembled %d instructions, %d nodes, %d edges\n",
		len(img.Program), img.Graph.N, len(img.Graph.ColIndex))
	return 0
}
