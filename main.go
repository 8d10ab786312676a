// Package main provides the entry point for GraphX.
// GraphX is a graph-processing accelerator VM with frontier-based
// traversal support, built alongside the Akita simulation framework.
//
// For the full CLI, use: go run ./cmd/graphx
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("GraphX - Graph Accelerator VM")
	fmt.Println("")
	fmt.Println("Usage: graphx [options] <program.bin>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -debug      Trace every executed instruction")
	fmt.Println("  -timing     Run the cycle-level timing simulation")
	fmt.Println("  -mem N      Dump the first N memory words on halt")
	fmt.Println("  -max-clock  Abort after this many instructions")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/graphx' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/graphx' instead.")
	}
}
