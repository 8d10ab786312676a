package emu

import (
	"errors"

	"github.com/sarchlab/graphx/insts"
)

// ErrDivideByZero reports an integer division by zero. Float division
// keeps the host's semantics and produces infinities or NaN instead.
var ErrDivideByZero = errors.New("integer division by zero")

// ALU executes the scalar arithmetic, compare, move, and convert opcodes.
// Each opcode covers four mode combinations selected by the I and F
// flags: register/register, register/immediate, in either bank.
type ALU struct {
	regFile *RegFile
}

// NewALU creates an ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// Arith executes ADD, SUB, MUL, or DIV.
func (a *ALU) Arith(inst insts.Instruction) error {
	if inst.Float() {
		return a.arithFloat(inst)
	}
	return a.arithInt(inst)
}

func (a *ALU) arithInt(inst insts.Instruction) error {
	op1 := a.regFile.ReadInt(inst.Src1)
	var op2 int32
	if inst.Imm() {
		op2 = inst.ImmInt()
	} else {
		op2 = a.regFile.ReadInt(uint8(inst.Src2))
	}

	var result int32
	switch inst.Op {
	case insts.OpADD:
		result = op1 + op2
	case insts.OpSUB:
		result = op1 - op2
	case insts.OpMUL:
		result = op1 * op2
	case insts.OpDIV:
		if op2 == 0 {
			return ErrDivideByZero
		}
		result = op1 / op2
	}

	a.regFile.WriteInt(inst.Dest, result)
	return nil
}

func (a *ALU) arithFloat(inst insts.Instruction) error {
	op1 := a.regFile.ReadFloat(inst.Src1)
	var op2 float32
	if inst.Imm() {
		op2 = inst.FImm
	} else {
		op2 = a.regFile.ReadFloat(uint8(inst.Src2))
	}

	var result float32
	switch inst.Op {
	case insts.OpADD:
		result = op1 + op2
	case insts.OpSUB:
		result = op1 - op2
	case insts.OpMUL:
		result = op1 * op2
	case insts.OpDIV:
		result = op1 / op2
	}

	a.regFile.WriteFloat(inst.Dest, result)
	return nil
}

// Compare executes CMP: FLAGS is set from the sign of src1 - src2, in
// the bank selected by the F flag.
func (a *ALU) Compare(inst insts.Instruction) {
	if inst.Float() {
		op1 := a.regFile.ReadFloat(inst.Src1)
		var op2 float32
		if inst.Imm() {
			op2 = inst.FImm
		} else {
			op2 = a.regFile.ReadFloat(uint8(inst.Src2))
		}
		diff := op1 - op2
		a.regFile.SetCompareFlags(diff < 0, diff == 0)
		return
	}

	op1 := a.regFile.ReadInt(inst.Src1)
	var op2 int32
	if inst.Imm() {
		op2 = inst.ImmInt()
	} else {
		op2 = a.regFile.ReadInt(uint8(inst.Src2))
	}
	diff := int64(op1) - int64(op2)
	a.regFile.SetCompareFlags(diff < 0, diff == 0)
}

// Move executes MOV: register copy, or immediate load when I is set.
func (a *ALU) Move(inst insts.Instruction) {
	if inst.Float() {
		if inst.Imm() {
			a.regFile.WriteFloat(inst.Dest, inst.FImm)
		} else {
			a.regFile.WriteFloat(inst.Dest, a.regFile.ReadFloat(inst.Src1))
		}
		return
	}

	if inst.Imm() {
		a.regFile.WriteInt(inst.Dest, inst.ImmInt())
	} else {
		a.regFile.WriteInt(inst.Dest, a.regFile.ReadInt(inst.Src1))
	}
}

// Convert executes MOVC: int-to-float when F is set, float-to-int
// (truncating) when clear.
func (a *ALU) Convert(inst insts.Instruction) {
	if inst.Float() {
		a.regFile.WriteFloat(inst.Dest, float32(a.regFile.ReadInt(inst.Src1)))
		return
	}
	a.regFile.WriteInt(inst.Dest, int32(a.regFile.ReadFloat(inst.Src1)))
}
