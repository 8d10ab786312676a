// Package emu provides functional emulation of the GraphX graph
// accelerator.
package emu

import (
	"github.com/sarchlab/graphx/insts"
)

// FLAGS bits. CMP sets exactly one of the three; the iteration and
// frontier opcodes touch only the zero bit.
const (
	FlagZero uint8 = 1 << 0
	FlagNeg  uint8 = 1 << 1
	FlagPos  uint8 = 1 << 2
)

// RegFile holds the GraphX register state: the integer, float, and vector
// banks, the scalar control registers, and the graph iterator cursors.
type RegFile struct {
	// R holds the integer registers. R[insts.RegZero] is forced to zero
	// on read, not on write.
	R [insts.NumIntRegs]int32

	// F holds the float registers, with the same convention for
	// F[insts.FRegZero].
	F [insts.NumFloatRegs]float32

	// V and VF hold the 4-lane integer and float vector registers.
	V  [insts.NumVectorRegs][insts.VectorLanes]int32
	VF [insts.NumVectorRegs][insts.VectorLanes]float32

	// PC is the program counter.
	PC uint32

	// FLAGS is the condition register.
	FLAGS uint8

	// ISA is the last decoded opcode; A0, A1, A2, and FA mirror the last
	// decoded argument fields. Kept for debug observers.
	ISA insts.Op
	A0  uint32
	A1  uint32
	A2  uint32
	FA  float32

	// NIter holds the per-node neighbor walk cursors; EIter is the
	// intra-row cursor of the global edge walk.
	NIter [4]uint32
	EIter uint32

	// Clock counts executed instructions.
	Clock uint64
}

// ReadInt reads an integer register. The zero register and any index
// outside the bank read as 0.
func (r *RegFile) ReadInt(reg uint8) int32 {
	if reg == insts.RegZero || reg >= insts.NumIntRegs {
		return 0
	}
	return r.R[reg]
}

// WriteInt writes an integer register. Writes to the zero register are
// accepted but never observable; writes outside the bank are dropped.
func (r *RegFile) WriteInt(reg uint8, value int32) {
	if reg >= insts.NumIntRegs {
		return
	}
	r.R[reg] = value
}

// ReadFloat reads a float register with the zero-register convention.
func (r *RegFile) ReadFloat(reg uint8) float32 {
	if reg == insts.FRegZero || reg >= insts.NumFloatRegs {
		return 0
	}
	return r.F[reg]
}

// WriteFloat writes a float register.
func (r *RegFile) WriteFloat(reg uint8, value float32) {
	if reg >= insts.NumFloatRegs {
		return
	}
	r.F[reg] = value
}

// ReadVecInt returns the lanes of an integer vector register.
func (r *RegFile) ReadVecInt(reg uint8) [insts.VectorLanes]int32 {
	if reg >= insts.NumVectorRegs {
		return [insts.VectorLanes]int32{}
	}
	return r.V[reg]
}

// WriteVecInt writes the lanes of an integer vector register.
func (r *RegFile) WriteVecInt(reg uint8, lanes [insts.VectorLanes]int32) {
	if reg >= insts.NumVectorRegs {
		return
	}
	r.V[reg] = lanes
}

// ReadVecFloat returns the lanes of a float vector register.
func (r *RegFile) ReadVecFloat(reg uint8) [insts.VectorLanes]float32 {
	if reg >= insts.NumVectorRegs {
		return [insts.VectorLanes]float32{}
	}
	return r.VF[reg]
}

// WriteVecFloat writes the lanes of a float vector register.
func (r *RegFile) WriteVecFloat(reg uint8, lanes [insts.VectorLanes]float32) {
	if reg >= insts.NumVectorRegs {
		return
	}
	r.VF[reg] = lanes
}

// SetCompareFlags sets exactly one of the three flag bits from the sign
// of a comparison.
func (r *RegFile) SetCompareFlags(negative, zero bool) {
	switch {
	case zero:
		r.FLAGS = FlagZero
	case negative:
		r.FLAGS = FlagNeg
	default:
		r.FLAGS = FlagPos
	}
}

// SetZero sets or clears the zero bit, leaving the other bits alone.
func (r *RegFile) SetZero(zero bool) {
	if zero {
		r.FLAGS |= FlagZero
	} else {
		r.FLAGS &^= FlagZero
	}
}

// Zero reports the zero bit.
func (r *RegFile) Zero() bool {
	return r.FLAGS&FlagZero != 0
}

// Negative reports the negative bit.
func (r *RegFile) Negative() bool {
	return r.FLAGS&FlagNeg != 0
}

// Positive reports the positive bit.
func (r *RegFile) Positive() bool {
	return r.FLAGS&FlagPos != 0
}
