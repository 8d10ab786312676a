// Package loader reads and writes GraphX binary program images.
//
// An image is little-endian and packed, with a five-field header of
// 32-bit section lengths (code, row index, column index, values, initial
// memory) followed by the sections in that order. Program words are 64
// bits; all other sections hold 32-bit words.
package loader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/graphx/emu"
	"github.com/sarchlab/graphx/graph"
)

// Load errors.
var (
	ErrProgramTooLarge = errors.New("program section exceeds program memory")
	ErrMemoryTooLarge  = errors.New("memory section exceeds data memory")
)

// Image is a loaded GraphX program: code, graph, and the initial data
// memory contents.
type Image struct {
	Program []uint64
	Graph   graph.Graph
	Memory  []int32
}

// header mirrors the packed on-disk section lengths.
type header struct {
	CodeLen     uint32
	RowIndexLen uint32
	ColIndexLen uint32
	ValuesLen   uint32
	MemLen      uint32
}

// Load reads an image from a file.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program file: %w", err)
	}
	defer func() { _ = f.Close() }()

	img, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Read reads an image from a stream.
func Read(r io.Reader) (*Image, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	if h.CodeLen > emu.ProgramSize {
		return nil, fmt.Errorf("%w: %d words", ErrProgramTooLarge, h.CodeLen)
	}
	if h.MemLen > emu.MemorySize {
		return nil, fmt.Errorf("%w: %d words", ErrMemoryTooLarge, h.MemLen)
	}

	img := &Image{
		Program: make([]uint64, h.CodeLen),
		Graph: graph.Graph{
			RowIndex: make([]int32, h.RowIndexLen),
			ColIndex: make([]int32, h.ColIndexLen),
			Values:   make([]int32, h.ValuesLen),
		},
		Memory: make([]int32, h.MemLen),
	}
	if h.RowIndexLen > 0 {
		img.Graph.N = int32(h.RowIndexLen) - 1
	}

	sections := []struct {
		name string
		data any
	}{
		{"program", img.Program},
		{"row index", img.Graph.RowIndex},
		{"column index", img.Graph.ColIndex},
		{"values", img.Graph.Values},
		{"memory", img.Memory},
	}
	for _, s := range sections {
		if err := binary.Read(r, binary.LittleEndian, s.data); err != nil {
			return nil, fmt.Errorf("failed to read %s section: %w", s.name, err)
		}
	}

	// An absent row index section means an empty graph; give it the
	// canonical single prefix entry so queries and validation hold.
	if h.RowIndexLen == 0 {
		img.Graph.RowIndex = []int32{0}
	}

	if err := img.Graph.Validate(); err != nil {
		return nil, fmt.Errorf("malformed graph: %w", err)
	}

	return img, nil
}

// Write serializes an image. It is the inverse of Read and shares its
// size limits.
func Write(w io.Writer, img *Image) error {
	if len(img.Program) > emu.ProgramSize {
		return fmt.Errorf("%w: %d words", ErrProgramTooLarge, len(img.Program))
	}
	if len(img.Memory) > emu.MemorySize {
		return fmt.Errorf("%w: %d words", ErrMemoryTooLarge, len(img.Memory))
	}

	h := header{
		CodeLen:     uint32(len(img.Program)),
		RowIndexLen: uint32(len(img.Graph.RowIndex)),
		ColIndexLen: uint32(len(img.Graph.ColIndex)),
		ValuesLen:   uint32(len(img.Graph.Values)),
		MemLen:      uint32(len(img.Memory)),
	}

	for _, data := range []any{
		h, img.Program, img.Graph.RowIndex, img.Graph.ColIndex,
		img.Graph.Values, img.Memory,
	} {
		if err := binary.Write(w, binary.LittleEndian, data); err != nil {
			return err
		}
	}
	return nil
}
