package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/graphx/frontier"
	"github.com/sarchlab/graphx/graph"
	"github.com/sarchlab/graphx/insts"
)

// Pipeline errors.
var (
	ErrBranchTarget = errors.New("branch target outside program memory")
	ErrClockLimit   = errors.New("clock limit reached")
)

// StepResult is the outcome of executing a single instruction.
type StepResult struct {
	// Status tells the pipeline whether to continue, halt, or fault.
	Status Status

	// Err carries the fault detail when Status is StatusError.
	Err error
}

// Emulator executes GraphX programs functionally. It owns its register
// file, data memory, and frontier pair; the graph is read-only during
// execution. One emulator must never be shared across goroutines, but
// independent emulators may run in parallel.
type Emulator struct {
	regFile *RegFile
	memory  *Memory
	graph   *graph.Graph
	program []uint64

	decoder      *insts.Decoder
	alu          *ALU
	vectorUnit   *VectorUnit
	graphUnit    *GraphUnit
	frontierUnit *FrontierUnit
	frontiers    frontierPair

	state    State
	lastInst insts.Instruction
	lastErr  error
	faultPC  uint32

	observer     Observer
	frontierKind frontier.Kind
	memImage     []int32
	maxClock     uint64
	coreID       int32
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithGraph attaches the CSR store the graph opcodes query.
func WithGraph(g *graph.Graph) EmulatorOption {
	return func(e *Emulator) {
		e.graph = g
	}
}

// WithProgram loads the program words. The loader guarantees the
// ProgramSize cap before images reach the emulator.
func WithProgram(program []uint64) EmulatorOption {
	return func(e *Emulator) {
		e.program = program
	}
}

// WithMemoryImage initializes the bottom of data memory.
func WithMemoryImage(words []int32) EmulatorOption {
	return func(e *Emulator) {
		e.memImage = words
	}
}

// WithObserver installs the debug and exit hooks.
func WithObserver(o Observer) EmulatorOption {
	return func(e *Emulator) {
		e.observer = o
	}
}

// WithFrontierKind selects the frontier backend for both buffers.
func WithFrontierKind(kind frontier.Kind) EmulatorOption {
	return func(e *Emulator) {
		e.frontierKind = kind
	}
}

// WithMaxClock faults the VM once the instruction counter reaches the
// limit. Zero means no limit.
func WithMaxClock(limit uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxClock = limit
	}
}

// WithCore sets the core id reported through Rcore.
func WithCore(id int32) EmulatorOption {
	return func(e *Emulator) {
		e.coreID = id
	}
}

// NewEmulator creates a GraphX emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:      &RegFile{},
		memory:       NewMemory(),
		decoder:      insts.NewDecoder(),
		observer:     NopObserver{},
		frontierKind: frontier.Queue,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.graph == nil {
		e.graph = &graph.Graph{N: 0, RowIndex: []int32{0}}
	}

	e.alu = NewALU(e.regFile)
	e.vectorUnit = NewVectorUnit(e.regFile, e.memory)
	e.graphUnit = NewGraphUnit(e.regFile, e.graph)
	e.frontierUnit = NewFrontierUnit(e.regFile, e.graph, &e.frontiers)

	e.initState()

	return e
}

// initState applies the construction-time state. Reset repeats all of it
// except loading the initial memory image.
func (e *Emulator) initState() {
	e.regFile.WriteInt(insts.RegCore, e.coreID)
	e.memory.Load(e.memImage)
	e.frontiers.Init(e.frontierKind)
	e.state = StateRunning
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's data memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Graph returns the attached CSR store.
func (e *Emulator) Graph() *graph.Graph {
	return e.graph
}

// CurrentFrontier returns the frontier consumed by FPOP.
func (e *Emulator) CurrentFrontier() *frontier.Frontier {
	return e.frontiers.Current()
}

// NextFrontier returns the frontier filled by FPUSH.
func (e *Emulator) NextFrontier() *frontier.Frontier {
	return e.frontiers.Next()
}

// State returns the pipeline state.
func (e *Emulator) State() State {
	return e.state
}

// LastInstruction returns the most recently decoded instruction.
func (e *Emulator) LastInstruction() insts.Instruction {
	return e.lastInst
}

// FaultPC returns the PC of the faulting instruction after an error. The
// fetch has already advanced the PC, so this is PC-1 at fault time. A
// clock-limit fault is raised before the fetch and reports the PC of the
// instruction that was not run.
func (e *Emulator) FaultPC() uint32 {
	return e.faultPC
}

// Err returns the fault detail after an error.
func (e *Emulator) Err() error {
	return e.lastErr
}

// Reset restores the initial machine state: registers, FLAGS, PC,
// iterators, clock, and data memory are cleared and both frontiers are
// re-initialized. The program and graph are preserved; the initial memory
// image is not reloaded, so data memory is all zero afterwards.
func (e *Emulator) Reset() {
	*e.regFile = RegFile{}
	e.memory.Reset()
	e.lastInst = insts.Instruction{}
	e.lastErr = nil
	e.faultPC = 0

	e.regFile.WriteInt(insts.RegCore, e.coreID)
	e.frontiers.Init(e.frontierKind)
	e.state = StateRunning
}

// Step runs one fetch-decode-execute cycle.
func (e *Emulator) Step() StepResult {
	switch e.state {
	case StateHalted:
		return StepResult{Status: StatusHalt}
	case StateErrored:
		return StepResult{Status: StatusError, Err: e.lastErr}
	}

	if e.maxClock > 0 && e.regFile.Clock >= e.maxClock {
		return e.fault(e.regFile.PC, ErrClockLimit)
	}

	// Fetch. Walking off the end of the program is a graceful halt, and
	// the PC is left where it is.
	if uint64(e.regFile.PC) >= uint64(len(e.program)) {
		return e.stop(StepResult{Status: StatusHalt})
	}
	word := e.program[e.regFile.PC]
	e.regFile.PC++

	// Decode.
	inst, err := e.decoder.Decode(word)
	if err != nil {
		return e.fault(e.regFile.PC-1, err)
	}
	e.lastInst = inst
	e.regFile.ISA = inst.Op
	e.regFile.A0 = uint32(inst.Dest)
	e.regFile.A1 = uint32(inst.Src1)
	e.regFile.A2 = inst.Src2
	e.regFile.FA = inst.FImm

	// Execute.
	result := e.execute(inst)
	if result.Status != StatusError {
		e.regFile.Clock++
	}
	e.observer.Step(e)

	if result.Status == StatusError {
		return e.fault(e.regFile.PC-1, result.Err)
	}
	return e.stop(result)
}

// Run executes until the program halts or faults, and returns the final
// status with the fault detail, if any.
func (e *Emulator) Run() (Status, error) {
	for {
		result := e.Step()
		if result.Status != StatusContinue {
			return result.Status, result.Err
		}
	}
}

// stop applies the pipeline transition for a non-error result.
func (e *Emulator) stop(result StepResult) StepResult {
	if result.Status == StatusHalt {
		e.state = StateHalted
		e.observer.Exit(e, StatusHalt)
	}
	return result
}

// fault transitions to the errored state and fires the exit hook with
// the offending PC.
func (e *Emulator) fault(pc uint32, err error) StepResult {
	e.state = StateErrored
	e.faultPC = pc
	e.lastErr = err
	e.observer.Exit(e, StatusError)
	return StepResult{Status: StatusError, Err: err}
}

// execute dispatches one decoded instruction. The switch is exhaustive
// over the opcode set; extending the ISA without handling the new opcode
// here trips the terminal default.
func (e *Emulator) execute(inst insts.Instruction) StepResult {
	cont := StepResult{Status: StatusContinue}

	switch inst.Op {
	// Control flow
	case insts.OpHALT:
		return StepResult{Status: StatusHalt}
	case insts.OpJMP:
		return e.branch(inst, true)
	case insts.OpBZ:
		return e.branch(inst, e.regFile.Zero())
	case insts.OpBNZ:
		return e.branch(inst, !e.regFile.Zero())
	case insts.OpBLT:
		return e.branch(inst, e.regFile.Negative())
	case insts.OpBGE:
		return e.branch(inst, e.regFile.Positive() || e.regFile.Zero())

	// Graph iteration
	case insts.OpNITER:
		return e.statusOf(e.graphUnit.IterInit(inst))
	case insts.OpNNEXT:
		return e.statusOf(e.graphUnit.IterNext(inst))
	case insts.OpEITER:
		e.graphUnit.EdgeInit()
	case insts.OpENEXT:
		e.graphUnit.EdgeNext()
	case insts.OpHASE:
		e.graphUnit.HasEdge()
	case insts.OpDEG:
		return e.statusOf(e.graphUnit.Degree(inst))

	// Scalar arithmetic
	case insts.OpADD, insts.OpSUB, insts.OpMUL, insts.OpDIV:
		return e.statusOf(e.alu.Arith(inst))
	case insts.OpCMP:
		e.alu.Compare(inst)
	case insts.OpMOV:
		e.alu.Move(inst)
	case insts.OpMOVC:
		e.alu.Convert(inst)

	// Memory access
	case insts.OpLD:
		return e.statusOf(e.load(inst))
	case insts.OpST:
		return e.statusOf(e.store(inst))

	// Frontier control
	case insts.OpFPUSH:
		return e.statusOf(e.frontierUnit.Push(inst))
	case insts.OpFPOP:
		return e.statusOf(e.frontierUnit.Pop(inst))
	case insts.OpFEMPTY:
		e.frontierUnit.Empty()
	case insts.OpFSWAP:
		e.frontierUnit.Swap()
	case insts.OpFFILL:
		return e.statusOf(e.frontierUnit.Fill())

	// Vector
	case insts.OpVADD, insts.OpVSUB, insts.OpVMUL, insts.OpVDIV:
		return e.statusOf(e.vectorUnit.Arith(inst))
	case insts.OpVLD:
		return e.statusOf(e.vectorUnit.Load(inst))
	case insts.OpVST:
		return e.statusOf(e.vectorUnit.Store(inst))
	case insts.OpVSET:
		e.vectorUnit.Set(inst)
	case insts.OpVSUM:
		e.vectorUnit.Sum(inst)

	// Multicore opcodes are accepted and executed as no-ops in the
	// single-core VM; their semantics belong to the hardware backend.
	case insts.OpPARALLEL, insts.OpBARRIER, insts.OpLOCK, insts.OpUNLOCK:

	default:
		return StepResult{
			Status: StatusError,
			Err:    fmt.Errorf("unhandled opcode %s", inst.Op),
		}
	}

	return cont
}

// statusOf folds a unit error into a step result.
func (e *Emulator) statusOf(err error) StepResult {
	if err != nil {
		return StepResult{Status: StatusError, Err: err}
	}
	return StepResult{Status: StatusContinue}
}

// branch validates the target and redirects the PC when taken. Targets
// outside the program are faults even when the branch is not taken.
func (e *Emulator) branch(inst insts.Instruction, taken bool) StepResult {
	target := inst.ImmInt()
	if target < 0 || int(target) >= len(e.program) {
		return StepResult{
			Status: StatusError,
			Err:    fmt.Errorf("%w: %d", ErrBranchTarget, target),
		}
	}
	if taken {
		e.regFile.PC = uint32(target)
	}
	return StepResult{Status: StatusContinue}
}

// load executes LD: a data memory cell into an integer or float
// register, the address taken from R[src1] or the immediate.
func (e *Emulator) load(inst insts.Instruction) error {
	addr := e.address(inst)
	if inst.Float() {
		v, err := e.memory.ReadFloat(addr)
		if err != nil {
			return err
		}
		e.regFile.WriteFloat(inst.Dest, v)
		return nil
	}
	v, err := e.memory.ReadInt(addr)
	if err != nil {
		return err
	}
	e.regFile.WriteInt(inst.Dest, v)
	return nil
}

// store executes ST: R[dest] or F[dest] into a data memory cell.
func (e *Emulator) store(inst insts.Instruction) error {
	addr := e.address(inst)
	if inst.Float() {
		return e.memory.WriteFloat(addr, e.regFile.ReadFloat(inst.Dest))
	}
	return e.memory.WriteInt(addr, e.regFile.ReadInt(inst.Dest))
}

// address resolves a memory operand.
func (e *Emulator) address(inst insts.Instruction) int32 {
	if inst.Imm() {
		return inst.ImmInt()
	}
	return e.regFile.ReadInt(inst.Src1)
}
