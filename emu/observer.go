package emu

import (
	"github.com/rs/zerolog"
)

// Observer receives the pipeline's debug and exit hooks. Step fires after
// every executed instruction; Exit fires once when the pipeline stops.
// Both are synchronous and must not mutate the emulator.
type Observer interface {
	Step(e *Emulator)
	Exit(e *Emulator, status Status)
}

// NopObserver ignores all hooks. It is the default observer.
type NopObserver struct{}

// Step implements Observer.
func (NopObserver) Step(*Emulator) {}

// Exit implements Observer.
func (NopObserver) Exit(*Emulator, Status) {}

// TraceObserver logs one structured event per executed instruction.
type TraceObserver struct {
	Logger zerolog.Logger
}

// Step implements Observer.
func (t *TraceObserver) Step(e *Emulator) {
	rf := e.RegFile()
	inst := e.LastInstruction()
	t.Logger.Debug().
		Uint32("pc", rf.PC-1).
		Str("op", inst.Op.String()).
		Uint8("flags", inst.Flags).
		Uint8("dest", inst.Dest).
		Uint8("src1", inst.Src1).
		Uint32("src2", inst.Src2).
		Uint8("cond", rf.FLAGS).
		Uint64("clock", rf.Clock).
		Msg("step")
}

// Exit implements Observer.
func (t *TraceObserver) Exit(e *Emulator, status Status) {
	evt := t.Logger.Info()
	if status == StatusError {
		evt = t.Logger.Error().Uint32("fault_pc", e.FaultPC())
	}
	evt.
		Stringer("status", status).
		Uint64("clock", e.RegFile().Clock).
		Msg("exit")
}

// RecordingObserver captures hook invocations for tests.
type RecordingObserver struct {
	Steps      int
	ExitStatus Status
	Exited     bool
}

// Step implements Observer.
func (r *RecordingObserver) Step(*Emulator) {
	r.Steps++
}

// Exit implements Observer.
func (r *RecordingObserver) Exit(_ *Emulator, status Status) {
	r.ExitStatus = status
	r.Exited = true
}
