package emu

import (
	"errors"
	"fmt"
	"math"
)

// MemorySize is the data memory capacity in 32-bit words.
const MemorySize = 65536

// ProgramSize is the program memory capacity in 64-bit words.
const ProgramSize = 8192

// ErrAddressRange reports a data memory access outside [0, MemorySize).
var ErrAddressRange = errors.New("address outside data memory")

// Memory is the VM's fixed-size data memory. Cells are stored as 32-bit
// words; float access reinterprets the bit pattern explicitly, never
// through overlapping storage.
type Memory struct {
	cells [MemorySize]int32
}

// NewMemory creates a zeroed data memory.
func NewMemory() *Memory {
	return &Memory{}
}

// check validates that addr..addr+span-1 lies inside memory.
func (m *Memory) check(addr int32, span int32) error {
	if addr < 0 || addr >= MemorySize || addr+span > MemorySize {
		return fmt.Errorf("%w: %d", ErrAddressRange, addr)
	}
	return nil
}

// ReadInt loads the cell at addr as an integer.
func (m *Memory) ReadInt(addr int32) (int32, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.cells[addr], nil
}

// WriteInt stores an integer at addr.
func (m *Memory) WriteInt(addr, value int32) error {
	if err := m.check(addr, 1); err != nil {
		return err
	}
	m.cells[addr] = value
	return nil
}

// ReadFloat loads the cell at addr, reinterpreting its bits as a float.
func (m *Memory) ReadFloat(addr int32) (float32, error) {
	v, err := m.ReadInt(addr)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(uint32(v)), nil
}

// WriteFloat stores a float's bit pattern at addr.
func (m *Memory) WriteFloat(addr int32, value float32) error {
	return m.WriteInt(addr, int32(math.Float32bits(value)))
}

// ReadVecInt loads 4 contiguous cells starting at base.
func (m *Memory) ReadVecInt(base int32) ([4]int32, error) {
	if err := m.check(base, 4); err != nil {
		return [4]int32{}, err
	}
	var lanes [4]int32
	copy(lanes[:], m.cells[base:base+4])
	return lanes, nil
}

// WriteVecInt stores 4 contiguous cells starting at base.
func (m *Memory) WriteVecInt(base int32, lanes [4]int32) error {
	if err := m.check(base, 4); err != nil {
		return err
	}
	copy(m.cells[base:base+4], lanes[:])
	return nil
}

// ReadVecFloat loads 4 contiguous cells as floats.
func (m *Memory) ReadVecFloat(base int32) ([4]float32, error) {
	ints, err := m.ReadVecInt(base)
	if err != nil {
		return [4]float32{}, err
	}
	var lanes [4]float32
	for i, v := range ints {
		lanes[i] = math.Float32frombits(uint32(v))
	}
	return lanes, nil
}

// WriteVecFloat stores 4 contiguous float bit patterns.
func (m *Memory) WriteVecFloat(base int32, lanes [4]float32) error {
	var ints [4]int32
	for i, v := range lanes {
		ints[i] = int32(math.Float32bits(v))
	}
	return m.WriteVecInt(base, ints)
}

// Load copies an initial image into the bottom of memory.
func (m *Memory) Load(words []int32) {
	copy(m.cells[:], words)
}

// Reset zeroes all of memory.
func (m *Memory) Reset() {
	m.cells = [MemorySize]int32{}
}

// At returns the raw cell at index i. It panics on out-of-range i and is
// meant for dumps and tests, not for emulated accesses.
func (m *Memory) At(i int) int32 {
	return m.cells[i]
}

// FloatAt returns the cell at index i reinterpreted as a float.
func (m *Memory) FloatAt(i int) float32 {
	return math.Float32frombits(uint32(m.cells[i]))
}
