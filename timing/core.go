// Package timing provides cycle-level timing simulation of the GraphX
// core on the Akita simulation framework. The functional emulator stays
// the source of truth for architectural state; this package charges a
// per-class latency to each retired instruction.
package timing

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/graphx/emu"
	"github.com/sarchlab/graphx/insts"
)

// Config holds the per-class instruction latencies in cycles. The
// defaults are placeholders pending calibration against the hardware
// backend.
type Config struct {
	// Freq is the simulated core frequency.
	Freq sim.Freq

	// ALULatency covers scalar arithmetic, moves, and compares.
	ALULatency uint64
	// BranchLatency covers control flow.
	BranchLatency uint64
	// MemoryLatency covers LD/ST.
	MemoryLatency uint64
	// VectorLatency covers the vector opcodes, including VLD/VST.
	VectorLatency uint64
	// GraphLatency covers the CSR query opcodes.
	GraphLatency uint64
	// FrontierLatency covers the frontier opcodes.
	FrontierLatency uint64
}

// DefaultConfig returns the baseline latency table.
func DefaultConfig() Config {
	return Config{
		Freq:            1 * sim.GHz,
		ALULatency:      1,
		BranchLatency:   1,
		MemoryLatency:   4,
		VectorLatency:   2,
		GraphLatency:    6,
		FrontierLatency: 2,
	}
}

// Stats holds the timing results of a simulation.
type Stats struct {
	Instructions uint64
	Cycles       uint64
}

// CPI returns cycles per instruction.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// Core drives one functional emulator as a ticking Akita component. Each
// tick advances one cycle; an instruction retires on its first cycle and
// stalls the core for the remainder of its latency.
type Core struct {
	*sim.TickingComponent

	emulator *emu.Emulator
	config   Config

	stats     Stats
	remaining uint64
	done      bool
	status    emu.Status
	err       error
}

// NewCore creates a timing core over the given emulator.
func NewCore(
	name string,
	engine sim.Engine,
	config Config,
	emulator *emu.Emulator,
) *Core {
	c := &Core{
		emulator: emulator,
		config:   config,
	}
	c.TickingComponent = sim.NewTickingComponent(name, engine, config.Freq, c)
	return c
}

// Tick implements sim.Ticker. It returns false once the program has
// halted or faulted, letting the engine drain.
func (c *Core) Tick() bool {
	if c.done {
		return false
	}

	c.stats.Cycles++

	if c.remaining > 0 {
		c.remaining--
		return true
	}

	result := c.emulator.Step()
	switch result.Status {
	case emu.StatusContinue:
		c.stats.Instructions++
		c.remaining = c.latencyOf(c.emulator.LastInstruction().Op) - 1
	case emu.StatusHalt:
		// A HALT opcode retires like any instruction; an off-the-end
		// fetch does not.
		if c.emulator.LastInstruction().Op == insts.OpHALT {
			c.stats.Instructions++
		}
		c.done = true
		c.status = emu.StatusHalt
	case emu.StatusError:
		c.done = true
		c.status = emu.StatusError
		c.err = result.Err
	}

	return !c.done
}

// latencyOf maps an opcode to its latency class.
func (c *Core) latencyOf(op insts.Op) uint64 {
	var lat uint64
	switch op {
	case insts.OpJMP, insts.OpBZ, insts.OpBNZ, insts.OpBLT, insts.OpBGE,
		insts.OpHALT:
		lat = c.config.BranchLatency
	case insts.OpLD, insts.OpST:
		lat = c.config.MemoryLatency
	case insts.OpVADD, insts.OpVSUB, insts.OpVMUL, insts.OpVDIV,
		insts.OpVLD, insts.OpVST, insts.OpVSET, insts.OpVSUM:
		lat = c.config.VectorLatency
	case insts.OpNITER, insts.OpNNEXT, insts.OpEITER, insts.OpENEXT,
		insts.OpHASE, insts.OpDEG:
		lat = c.config.GraphLatency
	case insts.OpFPUSH, insts.OpFPOP, insts.OpFEMPTY, insts.OpFSWAP,
		insts.OpFFILL:
		lat = c.config.FrontierLatency
	default:
		lat = c.config.ALULatency
	}
	if lat == 0 {
		lat = 1
	}
	return lat
}

// Stats returns the accumulated timing statistics.
func (c *Core) Stats() Stats {
	return c.stats
}

// Status returns the emulator's final status.
func (c *Core) Status() emu.Status {
	return c.status
}

// Err returns the fault detail when the simulation ended in an error.
func (c *Core) Err() error {
	return c.err
}

// Simulate runs the emulator to completion on a serial engine and
// returns the timing statistics with the final status.
func Simulate(emulator *emu.Emulator, config Config) (Stats, emu.Status, error) {
	engine := sim.NewSerialEngine()
	core := NewCore("GraphX.Core", engine, config, emulator)
	core.TickLater()

	if err := engine.Run(); err != nil {
		return core.Stats(), emu.StatusError, err
	}

	return core.Stats(), core.Status(), core.Err()
}
