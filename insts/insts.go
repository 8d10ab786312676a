// Package insts provides GraphX instruction definitions and decoding.
package insts

// Op represents a GraphX opcode.
type Op uint8

// GraphX opcodes. The numbering is part of the binary program format and
// must not be reordered.
const (
	// Control flow
	OpHALT Op = iota
	OpJMP
	OpBZ
	OpBNZ
	OpBLT
	OpBGE

	// Graph iteration
	OpNITER
	OpNNEXT
	OpEITER
	OpENEXT
	OpHASE
	OpDEG

	// Scalar arithmetic
	OpADD
	OpSUB
	OpMUL
	OpDIV
	OpCMP
	OpMOV
	OpMOVC

	// Memory access
	OpLD
	OpST

	// Frontier control
	OpFPUSH
	OpFPOP
	OpFEMPTY
	OpFSWAP
	OpFFILL

	// Vector
	OpVADD
	OpVSUB
	OpVMUL
	OpVDIV
	OpVLD
	OpVST
	OpVSET
	OpVSUM

	// Multicore (no-ops in the software VM)
	OpPARALLEL
	OpBARRIER
	OpLOCK
	OpUNLOCK

	numOps
)

var opNames = [numOps]string{
	OpHALT:     "HALT",
	OpJMP:      "JMP",
	OpBZ:       "BZ",
	OpBNZ:      "BNZ",
	OpBLT:      "BLT",
	OpBGE:      "BGE",
	OpNITER:    "NITER",
	OpNNEXT:    "NNEXT",
	OpEITER:    "EITER",
	OpENEXT:    "ENEXT",
	OpHASE:     "HASE",
	OpDEG:      "DEG",
	OpADD:      "ADD",
	OpSUB:      "SUB",
	OpMUL:      "MUL",
	OpDIV:      "DIV",
	OpCMP:      "CMP",
	OpMOV:      "MOV",
	OpMOVC:     "MOVC",
	OpLD:       "LD",
	OpST:       "ST",
	OpFPUSH:    "FPUSH",
	OpFPOP:     "FPOP",
	OpFEMPTY:   "FEMPTY",
	OpFSWAP:    "FSWAP",
	OpFFILL:    "FFILL",
	OpVADD:     "VADD",
	OpVSUB:     "VSUB",
	OpVMUL:     "VMUL",
	OpVDIV:     "VDIV",
	OpVLD:      "VLD",
	OpVST:      "VST",
	OpVSET:     "VSET",
	OpVSUM:     "VSUM",
	OpPARALLEL: "PARALLEL",
	OpBARRIER:  "BARRIER",
	OpLOCK:     "LOCK",
	OpUNLOCK:   "UNLOCK",
}

// String returns the mnemonic of the opcode.
func (o Op) String() string {
	if o >= numOps {
		return "UNKNOWN"
	}
	return opNames[o]
}

// Valid reports whether the opcode is part of the enumerated set.
func (o Op) Valid() bool {
	return o < numOps
}

// OpByName maps mnemonics to opcodes. Used by the assembler and debug
// tooling.
var OpByName = func() map[string]Op {
	m := make(map[string]Op, numOps)
	for op := Op(0); op < numOps; op++ {
		m[opNames[op]] = op
	}
	return m
}()

// Instruction flag bits (bits 55..48 of the instruction word).
const (
	// FlagImmediate marks the src2 field as a 32-bit immediate.
	FlagImmediate uint8 = 1 << 0
	// FlagFloat selects the float register bank and float arithmetic.
	FlagFloat uint8 = 1 << 1
)

// Integer register indices. The bank holds NumIntRegs registers; Rzero
// always reads as zero and Rcore holds the executing core id.
const (
	RegNode uint8 = iota
	RegNbr
	RegVal
	RegAcc
	RegTmp1
	RegTmp2
	RegTmp3
	RegTmp4
	RegTmp5
	RegTmp6
	RegTmp7
	RegTmp8
	RegTmp9
	RegTmp10
	RegTmp11
	RegTmp12
	RegTmp13
	RegTmp14
	RegTmp15
	RegTmp16
	RegZero
	RegCore

	// NumIntRegs is the size of the integer register bank. Indices 22 and
	// 23 are reserved.
	NumIntRegs = 24
)

// Float register indices.
const (
	FRegAcc uint8 = 0
	FRegZero uint8 = 17

	// NumFloatRegs is the size of the float register bank. FRegAcc+1
	// through FRegZero-1 are Ftmp1..Ftmp16.
	NumFloatRegs = 18
)

// NumVectorRegs is the number of vector registers per bank (integer and
// float), each VectorLanes wide.
const (
	NumVectorRegs = 16
	VectorLanes   = 4
)

// IntRegNames maps integer register aliases to bank indices.
var IntRegNames = map[string]uint8{
	"Rnode": RegNode,
	"Rnbr":  RegNbr,
	"Rval":  RegVal,
	"Racc":  RegAcc,
	"Rzero": RegZero,
	"Rcore": RegCore,
	"Rtmp1": RegTmp1, "Rtmp2": RegTmp2, "Rtmp3": RegTmp3, "Rtmp4": RegTmp4,
	"Rtmp5": RegTmp5, "Rtmp6": RegTmp6, "Rtmp7": RegTmp7, "Rtmp8": RegTmp8,
	"Rtmp9": RegTmp9, "Rtmp10": RegTmp10, "Rtmp11": RegTmp11, "Rtmp12": RegTmp12,
	"Rtmp13": RegTmp13, "Rtmp14": RegTmp14, "Rtmp15": RegTmp15, "Rtmp16": RegTmp16,
}

// FloatRegNames maps float register aliases to bank indices.
var FloatRegNames = func() map[string]uint8 {
	m := map[string]uint8{
		"Facc":  FRegAcc,
		"Fzero": FRegZero,
	}
	names := [...]string{
		"Ftmp1", "Ftmp2", "Ftmp3", "Ftmp4", "Ftmp5", "Ftmp6", "Ftmp7", "Ftmp8",
		"Ftmp9", "Ftmp10", "Ftmp11", "Ftmp12", "Ftmp13", "Ftmp14", "Ftmp15", "Ftmp16",
	}
	for i, n := range names {
		m[n] = uint8(i + 1)
	}
	return m
}()
