// Package asm assembles GraphX assembly source into binary program
// images.
//
// A source file is divided into sections: .code holds instructions and
// labels, .row_index/.col_index/.values hold the CSR graph, and .mem
// holds the initial data memory. Comments run from ';' to end of line.
// Immediates are written '#42' or '#1.5'; a float immediate or a float
// register operand selects the float mode of an opcode.
package asm

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sarchlab/graphx/insts"
	"github.com/sarchlab/graphx/loader"
)

// operandKind classifies a parsed operand.
type operandKind int

const (
	opdIntReg operandKind = iota
	opdFloatReg
	opdVecInt
	opdVecFloat
	opdImmInt
	opdImmFloat
	opdLabel
)

type operand struct {
	kind  operandKind
	reg   uint8
	ival  int32
	fval  float32
	label string
}

// Assemble translates GraphX assembly source into a program image.
func Assemble(src string) (*loader.Image, error) {
	a := &assembler{labels: map[string]int32{}}
	if err := a.firstPass(src); err != nil {
		return nil, err
	}
	if err := a.secondPass(src); err != nil {
		return nil, err
	}

	img := &loader.Image{
		Program: a.code,
		Memory:  a.mem,
	}
	img.Graph.RowIndex = a.rowIndex
	img.Graph.ColIndex = a.colIndex
	img.Graph.Values = a.values
	if len(a.rowIndex) == 0 {
		img.Graph.RowIndex = []int32{0}
	}
	img.Graph.N = int32(len(img.Graph.RowIndex)) - 1

	if err := img.Graph.Validate(); err != nil {
		return nil, fmt.Errorf("graph sections: %w", err)
	}
	return img, nil
}

type assembler struct {
	labels map[string]int32

	code     []uint64
	rowIndex []int32
	colIndex []int32
	values   []int32
	mem      []int32
}

// srcLine is a comment-stripped source line with its 1-based number.
type srcLine struct {
	no   int
	text string
}

// cleanLines yields the trimmed, comment-stripped lines of the source.
func cleanLines(src string) []srcLine {
	var out []srcLine
	for i, line := range strings.Split(src, "\n") {
		if idx := strings.IndexByte(line, ';'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, srcLine{no: i + 1, text: line})
	}
	return out
}

var labelPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*):\s*`)

// splitLabel separates an optional leading "name:" from the rest of a
// code line. Labels may stand alone or prefix an instruction.
func splitLabel(text string) (label, rest string) {
	m := labelPattern.FindStringSubmatch(text)
	if m == nil {
		return "", text
	}
	return m[1], strings.TrimSpace(text[len(m[0]):])
}

// firstPass records label addresses.
func (a *assembler) firstPass(src string) error {
	section := ""
	pc := int32(0)
	for _, line := range cleanLines(src) {
		if strings.HasPrefix(line.text, ".") {
			section = line.text
			continue
		}
		if section != ".code" {
			continue
		}
		label, rest := splitLabel(line.text)
		if label != "" {
			if _, dup := a.labels[label]; dup {
				return fmt.Errorf("line %d: duplicate label %q", line.no, label)
			}
			a.labels[label] = pc
		}
		if rest != "" {
			pc++
		}
	}
	return nil
}

// secondPass parses every section and emits the image contents.
func (a *assembler) secondPass(src string) error {
	section := ""
	for _, line := range cleanLines(src) {
		if strings.HasPrefix(line.text, ".") {
			section = line.text
			continue
		}

		var err error
		switch section {
		case ".code":
			_, rest := splitLabel(line.text)
			if rest == "" {
				continue
			}
			err = a.parseInstruction(rest)
		case ".row_index":
			a.rowIndex, err = appendWords(a.rowIndex, line.text)
		case ".col_index":
			a.colIndex, err = appendWords(a.colIndex, line.text)
		case ".values":
			a.values, err = appendWords(a.values, line.text)
		case ".mem":
			a.mem, err = appendWords(a.mem, line.text)
		default:
			err = fmt.Errorf("statement outside a section")
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line.no, err)
		}
	}
	return nil
}

// appendWords parses a comma/space separated run of 32-bit words. Float
// literals are stored as their bit patterns.
func appendWords(dst []int32, text string) ([]int32, error) {
	for _, tok := range splitOperands(text) {
		if strings.ContainsAny(tok, ".eE") && !strings.HasPrefix(tok, "0x") {
			f, err := strconv.ParseFloat(tok, 32)
			if err != nil {
				return dst, fmt.Errorf("invalid word %q", tok)
			}
			dst = append(dst, int32(math.Float32bits(float32(f))))
			continue
		}
		v, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return dst, fmt.Errorf("invalid word %q", tok)
		}
		dst = append(dst, int32(v))
	}
	return dst, nil
}

func splitOperands(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
	return fields
}

// parseInstruction assembles one mnemonic line into a program word.
func (a *assembler) parseInstruction(text string) error {
	tokens := splitOperands(text)
	mnemonic := tokens[0]
	op, ok := insts.OpByName[mnemonic]
	if !ok {
		return fmt.Errorf("unknown mnemonic %q", mnemonic)
	}

	operands := make([]operand, 0, 3)
	for _, tok := range tokens[1:] {
		opd, err := a.parseOperand(tok)
		if err != nil {
			return err
		}
		operands = append(operands, opd)
	}

	word, err := a.encode(op, operands)
	if err != nil {
		return fmt.Errorf("%s: %w", mnemonic, err)
	}
	a.code = append(a.code, word)
	return nil
}

// parseOperand classifies a single operand token.
func (a *assembler) parseOperand(tok string) (operand, error) {
	if r, ok := insts.IntRegNames[tok]; ok {
		return operand{kind: opdIntReg, reg: r}, nil
	}
	if r, ok := insts.FloatRegNames[tok]; ok {
		return operand{kind: opdFloatReg, reg: r}, nil
	}
	if n, ok := strings.CutPrefix(tok, "VF"); ok {
		return parseVecReg(n, opdVecFloat)
	}
	if n, ok := strings.CutPrefix(tok, "V"); ok {
		return parseVecReg(n, opdVecInt)
	}
	if imm, ok := strings.CutPrefix(tok, "#"); ok {
		if strings.ContainsAny(imm, ".eE") && !strings.HasPrefix(imm, "0x") {
			f, err := strconv.ParseFloat(imm, 32)
			if err != nil {
				return operand{}, fmt.Errorf("invalid immediate %q", tok)
			}
			return operand{kind: opdImmFloat, fval: float32(f)}, nil
		}
		v, err := strconv.ParseInt(imm, 0, 64)
		if err != nil {
			return operand{}, fmt.Errorf("invalid immediate %q", tok)
		}
		return operand{kind: opdImmInt, ival: int32(v)}, nil
	}
	return operand{kind: opdLabel, label: tok}, nil
}

func parseVecReg(n string, kind operandKind) (operand, error) {
	v, err := strconv.Atoi(n)
	if err != nil || v < 0 || v >= insts.NumVectorRegs {
		return operand{}, fmt.Errorf("invalid vector register V%s", n)
	}
	return operand{kind: kind, reg: uint8(v)}, nil
}

// resolve turns a label or integer immediate into an immediate operand.
func (a *assembler) resolve(opd operand) (operand, error) {
	if opd.kind != opdLabel {
		return opd, nil
	}
	addr, ok := a.labels[opd.label]
	if !ok {
		return operand{}, fmt.Errorf("undefined label %q", opd.label)
	}
	return operand{kind: opdImmInt, ival: addr}, nil
}

// encode maps (opcode, operands) to an instruction word, inferring the
// I and F flags from the operand classes.
func (a *assembler) encode(op insts.Op, opds []operand) (uint64, error) {
	inst := insts.Instruction{Op: op}

	setImmInt := func(v int32) {
		inst.Flags |= insts.FlagImmediate
		inst.Src2 = uint32(v)
	}
	setImmFloat := func(v float32) {
		inst.Flags |= insts.FlagImmediate | insts.FlagFloat
		inst.Src2 = math.Float32bits(v)
	}

	switch op {
	case insts.OpHALT, insts.OpEITER, insts.OpENEXT, insts.OpHASE,
		insts.OpFEMPTY, insts.OpFSWAP, insts.OpFFILL,
		insts.OpPARALLEL, insts.OpBARRIER, insts.OpLOCK, insts.OpUNLOCK:
		if len(opds) != 0 {
			return 0, fmt.Errorf("takes no operands")
		}

	case insts.OpJMP, insts.OpBZ, insts.OpBNZ, insts.OpBLT, insts.OpBGE:
		if len(opds) != 1 {
			return 0, fmt.Errorf("takes one target")
		}
		opd, err := a.resolve(opds[0])
		if err != nil {
			return 0, err
		}
		if opd.kind != opdImmInt {
			return 0, fmt.Errorf("target must be a label or integer immediate")
		}
		setImmInt(opd.ival)

	case insts.OpNITER, insts.OpNNEXT:
		if len(opds) != 1 || opds[0].kind != opdImmInt {
			return 0, fmt.Errorf("takes one iterator index immediate")
		}
		setImmInt(opds[0].ival)

	case insts.OpDEG, insts.OpFPUSH, insts.OpFPOP:
		if len(opds) != 1 || opds[0].kind != opdIntReg {
			return 0, fmt.Errorf("takes one integer register")
		}
		inst.Dest = opds[0].reg

	case insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpDIV:
		if len(opds) != 3 {
			return 0, fmt.Errorf("takes dest, src1, src2")
		}
		if err := encodeArith(&inst, opds, setImmInt, setImmFloat); err != nil {
			return 0, err
		}

	case insts.OpCMP:
		if len(opds) != 2 {
			return 0, fmt.Errorf("takes two comparands")
		}
		three := []operand{{kind: opds[0].kind}, opds[0], opds[1]}
		if err := encodeArith(&inst, three, setImmInt, setImmFloat); err != nil {
			return 0, err
		}
		inst.Dest = 0

	case insts.OpMOV:
		if len(opds) != 2 {
			return 0, fmt.Errorf("takes dest and source")
		}
		switch d, s := opds[0], opds[1]; {
		case d.kind == opdIntReg && s.kind == opdIntReg:
			inst.Dest, inst.Src1 = d.reg, s.reg
		case d.kind == opdIntReg && s.kind == opdImmInt:
			inst.Dest = d.reg
			setImmInt(s.ival)
		case d.kind == opdFloatReg && s.kind == opdFloatReg:
			inst.Flags |= insts.FlagFloat
			inst.Dest, inst.Src1 = d.reg, s.reg
		case d.kind == opdFloatReg && s.kind == opdImmFloat:
			inst.Dest = d.reg
			setImmFloat(s.fval)
		case d.kind == opdFloatReg && s.kind == opdImmInt:
			inst.Dest = d.reg
			setImmFloat(float32(s.ival))
		default:
			return 0, fmt.Errorf("operand banks do not match")
		}

	case insts.OpMOVC:
		if len(opds) != 2 {
			return 0, fmt.Errorf("takes dest and source")
		}
		switch d, s := opds[0], opds[1]; {
		case d.kind == opdFloatReg && s.kind == opdIntReg:
			inst.Flags |= insts.FlagFloat
			inst.Dest, inst.Src1 = d.reg, s.reg
		case d.kind == opdIntReg && s.kind == opdFloatReg:
			inst.Dest, inst.Src1 = d.reg, s.reg
		default:
			return 0, fmt.Errorf("converts between the integer and float banks")
		}

	case insts.OpLD, insts.OpST:
		if len(opds) != 2 {
			return 0, fmt.Errorf("takes data register and address")
		}
		d := opds[0]
		switch d.kind {
		case opdIntReg:
			inst.Dest = d.reg
		case opdFloatReg:
			inst.Flags |= insts.FlagFloat
			inst.Dest = d.reg
		default:
			return 0, fmt.Errorf("data operand must be a scalar register")
		}
		if err := encodeAddress(&inst, opds[1]); err != nil {
			return 0, err
		}

	case insts.OpVADD, insts.OpVSUB, insts.OpVMUL, insts.OpVDIV:
		if len(opds) != 3 {
			return 0, fmt.Errorf("takes three vector registers")
		}
		kind := opds[0].kind
		if kind != opdVecInt && kind != opdVecFloat {
			return 0, fmt.Errorf("operands must be vector registers")
		}
		for _, opd := range opds {
			if opd.kind != kind {
				return 0, fmt.Errorf("operand banks do not match")
			}
		}
		if kind == opdVecFloat {
			inst.Flags |= insts.FlagFloat
		}
		inst.Dest, inst.Src1, inst.Src2 = opds[0].reg, opds[1].reg, uint32(opds[2].reg)

	case insts.OpVLD, insts.OpVST:
		if len(opds) != 2 {
			return 0, fmt.Errorf("takes vector register and address")
		}
		switch opds[0].kind {
		case opdVecInt:
			inst.Dest = opds[0].reg
		case opdVecFloat:
			inst.Flags |= insts.FlagFloat
			inst.Dest = opds[0].reg
		default:
			return 0, fmt.Errorf("data operand must be a vector register")
		}
		if err := encodeAddress(&inst, opds[1]); err != nil {
			return 0, err
		}

	case insts.OpVSET:
		if len(opds) != 2 {
			return 0, fmt.Errorf("takes vector register and scalar")
		}
		d, s := opds[0], opds[1]
		switch {
		case d.kind == opdVecInt && s.kind == opdIntReg:
			inst.Dest, inst.Src1 = d.reg, s.reg
		case d.kind == opdVecInt && s.kind == opdImmInt:
			inst.Dest = d.reg
			setImmInt(s.ival)
		case d.kind == opdVecFloat && s.kind == opdFloatReg:
			inst.Flags |= insts.FlagFloat
			inst.Dest, inst.Src1 = d.reg, s.reg
		case d.kind == opdVecFloat && s.kind == opdImmFloat:
			inst.Dest = d.reg
			setImmFloat(s.fval)
		case d.kind == opdVecFloat && s.kind == opdImmInt:
			inst.Dest = d.reg
			setImmFloat(float32(s.ival))
		default:
			return 0, fmt.Errorf("operand banks do not match")
		}

	case insts.OpVSUM:
		if len(opds) != 2 {
			return 0, fmt.Errorf("takes scalar dest and vector source")
		}
		d, s := opds[0], opds[1]
		switch {
		case d.kind == opdIntReg && s.kind == opdVecInt:
			inst.Dest, inst.Src1 = d.reg, s.reg
		case d.kind == opdFloatReg && s.kind == opdVecFloat:
			inst.Flags |= insts.FlagFloat
			inst.Dest, inst.Src1 = d.reg, s.reg
		default:
			return 0, fmt.Errorf("operand banks do not match")
		}

	default:
		return 0, fmt.Errorf("unhandled mnemonic")
	}

	return insts.Encode(inst), nil
}

// encodeArith fills dest/src1/src2 for the three-operand arithmetic
// shape shared by ADD..DIV and (with a synthetic dest) CMP.
func encodeArith(
	inst *insts.Instruction,
	opds []operand,
	setImmInt func(int32),
	setImmFloat func(float32),
) error {
	d, s1, s2 := opds[0], opds[1], opds[2]
	switch {
	case d.kind == opdIntReg && s1.kind == opdIntReg && s2.kind == opdIntReg:
		inst.Dest, inst.Src1, inst.Src2 = d.reg, s1.reg, uint32(s2.reg)
	case d.kind == opdIntReg && s1.kind == opdIntReg && s2.kind == opdImmInt:
		inst.Dest, inst.Src1 = d.reg, s1.reg
		setImmInt(s2.ival)
	case d.kind == opdFloatReg && s1.kind == opdFloatReg && s2.kind == opdFloatReg:
		inst.Flags |= insts.FlagFloat
		inst.Dest, inst.Src1, inst.Src2 = d.reg, s1.reg, uint32(s2.reg)
	case d.kind == opdFloatReg && s1.kind == opdFloatReg && s2.kind == opdImmFloat:
		inst.Dest, inst.Src1 = d.reg, s1.reg
		setImmFloat(s2.fval)
	case d.kind == opdFloatReg && s1.kind == opdFloatReg && s2.kind == opdImmInt:
		inst.Dest, inst.Src1 = d.reg, s1.reg
		setImmFloat(float32(s2.ival))
	default:
		return fmt.Errorf("operand banks do not match")
	}
	return nil
}

// encodeAddress fills the address operand of LD/ST/VLD/VST.
func encodeAddress(inst *insts.Instruction, opd operand) error {
	switch opd.kind {
	case opdIntReg:
		inst.Src1 = opd.reg
	case opdImmInt:
		inst.Flags |= insts.FlagImmediate
		inst.Src2 = uint32(opd.ival)
	default:
		return fmt.Errorf("address must be an integer register or immediate")
	}
	return nil
}
