package emu

import (
	"github.com/sarchlab/graphx/insts"
)

// VectorUnit executes the 4-lane vector opcodes over the integer or float
// vector bank, selected by the F flag.
type VectorUnit struct {
	regFile *RegFile
	memory  *Memory
}

// NewVectorUnit creates a vector unit wired to the register file and
// data memory.
func NewVectorUnit(regFile *RegFile, memory *Memory) *VectorUnit {
	return &VectorUnit{regFile: regFile, memory: memory}
}

// Arith executes VADD, VSUB, VMUL, or VDIV lane-wise.
func (v *VectorUnit) Arith(inst insts.Instruction) error {
	if inst.Float() {
		a := v.regFile.ReadVecFloat(inst.Src1)
		b := v.regFile.ReadVecFloat(uint8(inst.Src2))
		var out [insts.VectorLanes]float32
		for i := range out {
			switch inst.Op {
			case insts.OpVADD:
				out[i] = a[i] + b[i]
			case insts.OpVSUB:
				out[i] = a[i] - b[i]
			case insts.OpVMUL:
				out[i] = a[i] * b[i]
			case insts.OpVDIV:
				out[i] = a[i] / b[i]
			}
		}
		v.regFile.WriteVecFloat(inst.Dest, out)
		return nil
	}

	a := v.regFile.ReadVecInt(inst.Src1)
	b := v.regFile.ReadVecInt(uint8(inst.Src2))
	var out [insts.VectorLanes]int32
	for i := range out {
		switch inst.Op {
		case insts.OpVADD:
			out[i] = a[i] + b[i]
		case insts.OpVSUB:
			out[i] = a[i] - b[i]
		case insts.OpVMUL:
			out[i] = a[i] * b[i]
		case insts.OpVDIV:
			if b[i] == 0 {
				return ErrDivideByZero
			}
			out[i] = a[i] / b[i]
		}
	}
	v.regFile.WriteVecInt(inst.Dest, out)
	return nil
}

// address resolves the base address operand: a register when I is clear,
// the immediate otherwise.
func (v *VectorUnit) address(inst insts.Instruction) int32 {
	if inst.Imm() {
		return inst.ImmInt()
	}
	return v.regFile.ReadInt(inst.Src1)
}

// Load executes VLD: 4 contiguous cells into the destination register.
func (v *VectorUnit) Load(inst insts.Instruction) error {
	base := v.address(inst)
	if inst.Float() {
		lanes, err := v.memory.ReadVecFloat(base)
		if err != nil {
			return err
		}
		v.regFile.WriteVecFloat(inst.Dest, lanes)
		return nil
	}
	lanes, err := v.memory.ReadVecInt(base)
	if err != nil {
		return err
	}
	v.regFile.WriteVecInt(inst.Dest, lanes)
	return nil
}

// Store executes VST: the destination register's lanes into 4 contiguous
// cells.
func (v *VectorUnit) Store(inst insts.Instruction) error {
	base := v.address(inst)
	if inst.Float() {
		return v.memory.WriteVecFloat(base, v.regFile.ReadVecFloat(inst.Dest))
	}
	return v.memory.WriteVecInt(base, v.regFile.ReadVecInt(inst.Dest))
}

// Set executes VSET: broadcast a scalar (register or immediate) to all
// lanes.
func (v *VectorUnit) Set(inst insts.Instruction) {
	if inst.Float() {
		var s float32
		if inst.Imm() {
			s = inst.FImm
		} else {
			s = v.regFile.ReadFloat(inst.Src1)
		}
		v.regFile.WriteVecFloat(inst.Dest,
			[insts.VectorLanes]float32{s, s, s, s})
		return
	}

	var s int32
	if inst.Imm() {
		s = inst.ImmInt()
	} else {
		s = v.regFile.ReadInt(inst.Src1)
	}
	v.regFile.WriteVecInt(inst.Dest, [insts.VectorLanes]int32{s, s, s, s})
}

// Sum executes VSUM: the horizontal lane sum is added into the scalar
// destination. The destination is accumulated into, not overwritten.
func (v *VectorUnit) Sum(inst insts.Instruction) {
	if inst.Float() {
		var sum float32
		for _, lane := range v.regFile.ReadVecFloat(inst.Src1) {
			sum += lane
		}
		v.regFile.WriteFloat(inst.Dest, v.regFile.ReadFloat(inst.Dest)+sum)
		return
	}

	var sum int32
	for _, lane := range v.regFile.ReadVecInt(inst.Src1) {
		sum += lane
	}
	v.regFile.WriteInt(inst.Dest, v.regFile.ReadInt(inst.Dest)+sum)
}
