package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/graphx/emu"
	"github.com/sarchlab/graphx/insts"
)

var _ = Describe("Emulator", func() {
	Describe("fetch", func() {
		It("should return each word in order and advance the PC by one", func() {
			program := []uint64{
				movImm(insts.RegTmp1, 1),
				movImm(insts.RegTmp2, 2),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			Expect(e.Step().Status).To(Equal(emu.StatusContinue))
			Expect(e.RegFile().PC).To(Equal(uint32(1)))
			Expect(e.Step().Status).To(Equal(emu.StatusContinue))
			Expect(e.RegFile().PC).To(Equal(uint32(2)))
			Expect(e.RegFile().ReadInt(insts.RegTmp1)).To(Equal(int32(1)))
			Expect(e.RegFile().ReadInt(insts.RegTmp2)).To(Equal(int32(2)))
		})

		It("should halt gracefully when the PC walks off the end", func() {
			program := []uint64{movImm(insts.RegTmp1, 1)}
			e := emu.NewEmulator(emu.WithProgram(program))

			Expect(e.Step().Status).To(Equal(emu.StatusContinue))

			result := e.Step()
			Expect(result.Status).To(Equal(emu.StatusHalt))
			Expect(e.State()).To(Equal(emu.StateHalted))
			// The PC is left in place on an off-the-end fetch.
			Expect(e.RegFile().PC).To(Equal(uint32(1)))
		})
	})

	Describe("decode errors", func() {
		It("should fault on an unknown opcode and report the failing PC", func() {
			program := []uint64{
				movImm(insts.RegTmp1, 1),
				uint64(0xEE) << 56,
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(HaveOccurred())
			Expect(e.State()).To(Equal(emu.StateErrored))
			Expect(e.FaultPC()).To(Equal(uint32(1)))
			Expect(e.RegFile().Clock).To(Equal(uint64(1)))
		})
	})

	Describe("scalar arithmetic", func() {
		runProgram := func(words ...uint64) *emu.Emulator {
			e := emu.NewEmulator(emu.WithProgram(append(words, halt())))
			status, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(emu.StatusHalt))
			return e
		}

		It("should cover the four ADD mode combinations", func() {
			e := runProgram(
				movImm(insts.RegTmp1, 10),
				movImm(insts.RegTmp2, 3),
				arith(insts.OpADD, insts.RegAcc, insts.RegTmp1, insts.RegTmp2),
				arithImm(insts.OpADD, insts.RegTmp3, insts.RegTmp1, 5),
				enc(insts.OpMOV, insts.FlagImmediate|insts.FlagFloat, 1, 0, math.Float32bits(1.25)),
				enc(insts.OpMOV, insts.FlagImmediate|insts.FlagFloat, 2, 0, math.Float32bits(2.5)),
				enc(insts.OpADD, insts.FlagFloat, 3, 1, 2),
				enc(insts.OpADD, insts.FlagImmediate|insts.FlagFloat, 4, 1, math.Float32bits(0.75)),
			)

			rf := e.RegFile()
			Expect(rf.ReadInt(insts.RegAcc)).To(Equal(int32(13)))
			Expect(rf.ReadInt(insts.RegTmp3)).To(Equal(int32(15)))
			Expect(rf.ReadFloat(3)).To(Equal(float32(3.75)))
			Expect(rf.ReadFloat(4)).To(Equal(float32(2.0)))
		})

		It("should subtract, multiply, and divide", func() {
			e := runProgram(
				movImm(insts.RegTmp1, 20),
				movImm(insts.RegTmp2, 6),
				arith(insts.OpSUB, insts.RegTmp3, insts.RegTmp1, insts.RegTmp2),
				arith(insts.OpMUL, insts.RegTmp4, insts.RegTmp1, insts.RegTmp2),
				arith(insts.OpDIV, insts.RegTmp5, insts.RegTmp1, insts.RegTmp2),
			)

			rf := e.RegFile()
			Expect(rf.ReadInt(insts.RegTmp3)).To(Equal(int32(14)))
			Expect(rf.ReadInt(insts.RegTmp4)).To(Equal(int32(120)))
			Expect(rf.ReadInt(insts.RegTmp5)).To(Equal(int32(3)))
		})

		It("should fault on integer division by zero", func() {
			program := []uint64{
				movImm(insts.RegTmp1, 10),
				movImm(insts.RegTmp2, 0),
				arith(insts.OpDIV, insts.RegTmp3, insts.RegTmp1, insts.RegTmp2),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(MatchError(emu.ErrDivideByZero))
			Expect(e.FaultPC()).To(Equal(uint32(2)))
			// Only the two moves retired.
			Expect(e.RegFile().Clock).To(Equal(uint64(2)))
		})

		It("should produce infinities on float division by zero", func() {
			e := runProgram(
				enc(insts.OpMOV, insts.FlagImmediate|insts.FlagFloat, 1, 0, math.Float32bits(1)),
				enc(insts.OpDIV, insts.FlagImmediate|insts.FlagFloat, 2, 1, math.Float32bits(0)),
			)
			Expect(math.IsInf(float64(e.RegFile().ReadFloat(2)), 1)).To(BeTrue())
		})

		It("should treat Rzero as 0 even after being written", func() {
			e := runProgram(
				movImm(insts.RegZero, 123),
				arithImm(insts.OpADD, insts.RegAcc, insts.RegZero, 5),
			)
			Expect(e.RegFile().ReadInt(insts.RegAcc)).To(Equal(int32(5)))
		})
	})

	Describe("CMP and branches", func() {
		cmpFlags := func(a, b int32) *emu.RegFile {
			e := emu.NewEmulator(emu.WithProgram([]uint64{
				movImm(insts.RegTmp1, a),
				arithImm(insts.OpCMP, 0, insts.RegTmp1, b),
				halt(),
			}))
			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
			return e.RegFile()
		}

		It("should set exactly one flag bit matching the sign of a-b", func() {
			Expect(cmpFlags(3, 3).FLAGS).To(Equal(emu.FlagZero))
			Expect(cmpFlags(2, 3).FLAGS).To(Equal(emu.FlagNeg))
			Expect(cmpFlags(4, 3).FLAGS).To(Equal(emu.FlagPos))
		})

		It("should compare floats when F is set", func() {
			e := emu.NewEmulator(emu.WithProgram([]uint64{
				enc(insts.OpMOV, insts.FlagImmediate|insts.FlagFloat, 1, 0, math.Float32bits(1.5)),
				enc(insts.OpCMP, insts.FlagImmediate|insts.FlagFloat, 0, 1, math.Float32bits(2.5)),
				halt(),
			}))
			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(e.RegFile().FLAGS).To(Equal(emu.FlagNeg))
		})

		// Branch correspondence: BLT iff NEG, BGE iff POS or ZERO,
		// BZ iff ZERO, BNZ iff not ZERO.
		branchTaken := func(op insts.Op, a, b int32) bool {
			// Taken branches jump over the marker move.
			program := []uint64{
				movImm(insts.RegTmp1, a),
				arithImm(insts.OpCMP, 0, insts.RegTmp1, b),
				enc(op, insts.FlagImmediate, 0, 0, 4),
				movImm(insts.RegAcc, 1), // marker: only runs when not taken
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))
			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
			return e.RegFile().ReadInt(insts.RegAcc) == 0
		}

		It("should take BLT exactly on negative", func() {
			Expect(branchTaken(insts.OpBLT, 1, 2)).To(BeTrue())
			Expect(branchTaken(insts.OpBLT, 2, 2)).To(BeFalse())
			Expect(branchTaken(insts.OpBLT, 3, 2)).To(BeFalse())
		})

		It("should take BGE on positive or zero", func() {
			Expect(branchTaken(insts.OpBGE, 1, 2)).To(BeFalse())
			Expect(branchTaken(insts.OpBGE, 2, 2)).To(BeTrue())
			Expect(branchTaken(insts.OpBGE, 3, 2)).To(BeTrue())
		})

		It("should take BZ exactly on zero", func() {
			Expect(branchTaken(insts.OpBZ, 2, 2)).To(BeTrue())
			Expect(branchTaken(insts.OpBZ, 1, 2)).To(BeFalse())
		})

		It("should take BNZ exactly on not-zero", func() {
			Expect(branchTaken(insts.OpBNZ, 1, 2)).To(BeTrue())
			Expect(branchTaken(insts.OpBNZ, 2, 2)).To(BeFalse())
		})

		It("should fault on a branch target outside the program", func() {
			program := []uint64{
				enc(insts.OpJMP, insts.FlagImmediate, 0, 0, 100),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(MatchError(emu.ErrBranchTarget))
			Expect(e.FaultPC()).To(Equal(uint32(0)))
		})

		It("should fault on a negative branch target", func() {
			program := []uint64{
				enc(insts.OpJMP, insts.FlagImmediate, 0, 0, uint32(0xFFFFFFFF)),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(MatchError(emu.ErrBranchTarget))
		})
	})

	Describe("MOV and MOVC", func() {
		It("should copy between registers and convert across banks", func() {
			program := []uint64{
				movImm(insts.RegTmp1, 7),
				enc(insts.OpMOV, 0, insts.RegTmp2, insts.RegTmp1, 0),
				enc(insts.OpMOVC, insts.FlagFloat, 2, insts.RegTmp1, 0),
				enc(insts.OpMOV, insts.FlagImmediate|insts.FlagFloat, 3, 0, math.Float32bits(-2.75)),
				enc(insts.OpMOVC, 0, insts.RegTmp3, 3, 0),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			rf := e.RegFile()
			Expect(rf.ReadInt(insts.RegTmp2)).To(Equal(int32(7)))
			Expect(rf.ReadFloat(2)).To(Equal(float32(7)))
			// Truncation toward zero.
			Expect(rf.ReadInt(insts.RegTmp3)).To(Equal(int32(-2)))
		})
	})

	Describe("LD and ST", func() {
		It("should store and load through immediate and register addresses", func() {
			program := []uint64{
				movImm(insts.RegTmp1, 41),
				enc(insts.OpST, insts.FlagImmediate, insts.RegTmp1, 0, 7),
				movImm(insts.RegTmp2, 7),
				enc(insts.OpLD, 0, insts.RegTmp3, insts.RegTmp2, 0),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Memory().At(7)).To(Equal(int32(41)))
			Expect(e.RegFile().ReadInt(insts.RegTmp3)).To(Equal(int32(41)))
		})

		It("should move floats through memory with F set", func() {
			program := []uint64{
				enc(insts.OpMOV, insts.FlagImmediate|insts.FlagFloat, 1, 0, math.Float32bits(3.25)),
				enc(insts.OpST, insts.FlagImmediate|insts.FlagFloat, 1, 0, 12),
				enc(insts.OpLD, insts.FlagImmediate|insts.FlagFloat, 2, 0, 12),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(e.Memory().FloatAt(12)).To(Equal(float32(3.25)))
			Expect(e.RegFile().ReadFloat(2)).To(Equal(float32(3.25)))
		})

		It("should fault on an out-of-range address", func() {
			program := []uint64{
				enc(insts.OpLD, insts.FlagImmediate, insts.RegTmp1, 0, uint32(emu.MemorySize)),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(MatchError(emu.ErrAddressRange))
		})

		It("should fault on a negative register address", func() {
			program := []uint64{
				movImm(insts.RegTmp1, -5),
				enc(insts.OpST, 0, insts.RegTmp2, insts.RegTmp1, 0),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(MatchError(emu.ErrAddressRange))
		})
	})

	Describe("multicore opcodes", func() {
		It("should execute them as no-ops", func() {
			program := []uint64{
				enc(insts.OpPARALLEL, 0, 0, 0, 0),
				enc(insts.OpBARRIER, 0, 0, 0, 0),
				enc(insts.OpLOCK, 0, 0, 0, 0),
				enc(insts.OpUNLOCK, 0, 0, 0, 0),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program))

			status, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(emu.StatusHalt))
			Expect(e.RegFile().Clock).To(Equal(uint64(5)))
		})
	})

	Describe("Reset", func() {
		It("should restore the initial state but keep program and graph", func() {
			g := baselineGraph()
			program := []uint64{
				movImm(insts.RegAcc, 9),
				enc(insts.OpST, insts.FlagImmediate, insts.RegAcc, 0, 3),
				enc(insts.OpFPUSH, 0, insts.RegAcc, 0, 0),
				enc(insts.OpNITER, insts.FlagImmediate, 0, 0, 2),
				halt(),
			}
			e := emu.NewEmulator(emu.WithProgram(program), emu.WithGraph(g))
			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())

			e.Reset()

			rf := e.RegFile()
			Expect(rf.PC).To(Equal(uint32(0)))
			Expect(rf.FLAGS).To(Equal(uint8(0)))
			Expect(rf.Clock).To(Equal(uint64(0)))
			Expect(rf.ReadInt(insts.RegAcc)).To(Equal(int32(0)))
			for i := 0; i < 4; i++ {
				Expect(rf.NIter[i]).To(Equal(uint32(0)))
			}
			Expect(rf.EIter).To(Equal(uint32(0)))
			Expect(e.Memory().At(3)).To(Equal(int32(0)))
			Expect(e.CurrentFrontier().Empty()).To(BeTrue())
			Expect(e.NextFrontier().Empty()).To(BeTrue())
			Expect(e.Graph()).To(BeIdenticalTo(g))
			Expect(e.State()).To(Equal(emu.StateRunning))

			// The preserved program runs again to the same result.
			status, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(emu.StatusHalt))
			Expect(e.Memory().At(3)).To(Equal(int32(9)))
		})
	})

	Describe("observers", func() {
		It("should fire the step hook per instruction and exit on halt", func() {
			rec := &emu.RecordingObserver{}
			e := emu.NewEmulator(
				emu.WithProgram([]uint64{movImm(insts.RegTmp1, 1), halt()}),
				emu.WithObserver(rec),
			)

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(rec.Steps).To(Equal(2))
			Expect(rec.Exited).To(BeTrue())
			Expect(rec.ExitStatus).To(Equal(emu.StatusHalt))
		})

		It("should report the error status through the exit hook", func() {
			rec := &emu.RecordingObserver{}
			e := emu.NewEmulator(
				emu.WithProgram([]uint64{uint64(0xEE) << 56}),
				emu.WithObserver(rec),
			)

			_, _ = e.Run()

			Expect(rec.Exited).To(BeTrue())
			Expect(rec.ExitStatus).To(Equal(emu.StatusError))
		})
	})

	Describe("clock limit", func() {
		It("should fault once the limit is reached", func() {
			program := []uint64{
				enc(insts.OpJMP, insts.FlagImmediate, 0, 0, 0), // spin
			}
			e := emu.NewEmulator(
				emu.WithProgram(program),
				emu.WithMaxClock(100),
			)

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(MatchError(emu.ErrClockLimit))
			Expect(e.RegFile().Clock).To(Equal(uint64(100)))
		})
	})

	Describe("core id", func() {
		It("should expose the core id through Rcore", func() {
			e := emu.NewEmulator(
				emu.WithProgram([]uint64{
					enc(insts.OpMOV, 0, insts.RegAcc, insts.RegCore, 0),
					halt(),
				}),
				emu.WithCore(3),
			)

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(e.RegFile().ReadInt(insts.RegAcc)).To(Equal(int32(3)))
		})
	})
})
