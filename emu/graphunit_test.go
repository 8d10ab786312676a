package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/graphx/emu"
	"github.com/sarchlab/graphx/insts"
)

var _ = Describe("Graph iteration opcodes", func() {
	niter := func(i int32) uint64 {
		return enc(insts.OpNITER, insts.FlagImmediate, 0, 0, uint32(i))
	}
	nnext := func(i int32) uint64 {
		return enc(insts.OpNNEXT, insts.FlagImmediate, 0, 0, uint32(i))
	}

	Describe("NITER and NNEXT", func() {
		It("should walk all neighbors of Rnode in row order", func() {
			e := emu.NewEmulator(emu.WithGraph(baselineGraph()),
				emu.WithProgram([]uint64{
					movImm(insts.RegNode, 2),
					niter(0),
					nnext(0), nnext(0), nnext(0), nnext(0),
					halt(),
				}))

			rf := e.RegFile()
			for i := 0; i < 2; i++ { // mov + niter
				Expect(e.Step().Status).To(Equal(emu.StatusContinue))
			}

			wantNbrs := []int32{0, 1, 3, 5}
			wantVals := []int32{9, 10, 11, 2}
			for i := range wantNbrs {
				Expect(e.Step().Status).To(Equal(emu.StatusContinue))
				Expect(rf.Zero()).To(BeFalse())
				Expect(rf.ReadInt(insts.RegNbr)).To(Equal(wantNbrs[i]))
				Expect(rf.ReadInt(insts.RegVal)).To(Equal(wantVals[i]))
			}
		})

		It("should set the zero flag when the row is exhausted", func() {
			e := emu.NewEmulator(emu.WithGraph(baselineGraph()),
				emu.WithProgram([]uint64{
					movImm(insts.RegNode, 4),
					niter(1),
					nnext(1), nnext(1),
					nnext(1), // past the end
					halt(),
				}))

			status, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(status).To(Equal(emu.StatusHalt))
			Expect(e.RegFile().Zero()).To(BeTrue())
			// The loaded registers keep the last neighbor.
			Expect(e.RegFile().ReadInt(insts.RegNbr)).To(Equal(int32(5)))
		})

		It("should keep the four cursors independent", func() {
			e := emu.NewEmulator(emu.WithGraph(baselineGraph()),
				emu.WithProgram([]uint64{
					movImm(insts.RegNode, 0),
					niter(0), niter(3),
					nnext(0), nnext(0),
					nnext(3),
					halt(),
				}))

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			rf := e.RegFile()
			Expect(rf.NIter[0]).To(Equal(uint32(2)))
			Expect(rf.NIter[3]).To(Equal(uint32(1)))
			// The last NNEXT on cursor 3 reloaded the first neighbor.
			Expect(rf.ReadInt(insts.RegNbr)).To(Equal(int32(1)))
		})

		It("should fault on an iterator index outside 0..3", func() {
			for _, bad := range []int32{-1, 4, 100} {
				e := emu.NewEmulator(emu.WithGraph(baselineGraph()),
					emu.WithProgram([]uint64{niter(bad), halt()}))
				status, err := e.Run()
				Expect(status).To(Equal(emu.StatusError))
				Expect(err).To(MatchError(emu.ErrIteratorIndex))

				e = emu.NewEmulator(emu.WithGraph(baselineGraph()),
					emu.WithProgram([]uint64{nnext(bad), halt()}))
				status, err = e.Run()
				Expect(status).To(Equal(emu.StatusError))
				Expect(err).To(MatchError(emu.ErrIteratorIndex))
			}
		})
	})

	Describe("EITER and ENEXT", func() {
		It("should visit every edge of the graph in row order", func() {
			g := baselineGraph()
			program := []uint64{enc(insts.OpEITER, 0, 0, 0, 0)}
			for i := 0; i < len(g.ColIndex); i++ {
				program = append(program, enc(insts.OpENEXT, 0, 0, 0, 0))
			}
			program = append(program, halt())

			e := emu.NewEmulator(emu.WithGraph(g), emu.WithProgram(program))
			rf := e.RegFile()

			Expect(e.Step().Status).To(Equal(emu.StatusContinue)) // EITER
			var srcs, dsts []int32
			for i := 0; i < len(g.ColIndex); i++ {
				Expect(e.Step().Status).To(Equal(emu.StatusContinue))
				Expect(rf.Zero()).To(BeFalse())
				srcs = append(srcs, rf.ReadInt(insts.RegNode))
				dsts = append(dsts, rf.ReadInt(insts.RegNbr))
			}

			Expect(srcs).To(Equal([]int32{0, 0, 0, 1, 1, 1, 2, 2, 2, 2, 3, 3, 3, 4, 4, 5, 5, 5}))
			Expect(dsts).To(Equal(g.ColIndex))
		})

		It("should skip runs of empty rows", func() {
			// Only 0->1 and 4->0 exist; rows 1..3 are empty.
			e := emu.NewEmulator(emu.WithGraph(gappyGraph()),
				emu.WithProgram([]uint64{
					enc(insts.OpEITER, 0, 0, 0, 0),
					enc(insts.OpENEXT, 0, 0, 0, 0),
					enc(insts.OpENEXT, 0, 0, 0, 0),
					enc(insts.OpENEXT, 0, 0, 0, 0),
					halt(),
				}))
			rf := e.RegFile()

			Expect(e.Step().Status).To(Equal(emu.StatusContinue))

			Expect(e.Step().Status).To(Equal(emu.StatusContinue))
			Expect(rf.ReadInt(insts.RegNode)).To(Equal(int32(0)))
			Expect(rf.ReadInt(insts.RegNbr)).To(Equal(int32(1)))
			Expect(rf.ReadInt(insts.RegVal)).To(Equal(int32(10)))

			Expect(e.Step().Status).To(Equal(emu.StatusContinue))
			Expect(rf.ReadInt(insts.RegNode)).To(Equal(int32(4)))
			Expect(rf.ReadInt(insts.RegNbr)).To(Equal(int32(0)))
			Expect(rf.ReadInt(insts.RegVal)).To(Equal(int32(20)))

			Expect(e.Step().Status).To(Equal(emu.StatusContinue))
			Expect(rf.Zero()).To(BeTrue())
		})

		It("should signal the end immediately on an empty graph", func() {
			e := emu.NewEmulator(emu.WithProgram([]uint64{
				enc(insts.OpEITER, 0, 0, 0, 0),
				enc(insts.OpENEXT, 0, 0, 0, 0),
				halt(),
			}))

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(e.RegFile().Zero()).To(BeTrue())
		})
	})

	Describe("HASE", func() {
		hase := func(node, nbr int32) *emu.RegFile {
			e := emu.NewEmulator(emu.WithGraph(baselineGraph()),
				emu.WithProgram([]uint64{
					movImm(insts.RegNode, node),
					movImm(insts.RegNbr, nbr),
					enc(insts.OpHASE, 0, 0, 0, 0),
					halt(),
				}))
			_, err := e.Run()
			Expect(err).NotTo(HaveOccurred())
			return e.RegFile()
		}

		It("should clear the zero flag on a hit so BNZ jumps", func() {
			Expect(hase(0, 5).Zero()).To(BeFalse())
			Expect(hase(3, 2).Zero()).To(BeFalse())
		})

		It("should set the zero flag on a miss", func() {
			Expect(hase(0, 3).Zero()).To(BeTrue())
			Expect(hase(4, 4).Zero()).To(BeTrue())
		})

		It("should treat an out-of-range node as a miss", func() {
			Expect(hase(99, 0).Zero()).To(BeTrue())
		})
	})

	Describe("DEG", func() {
		It("should write the degree of R[dest] into Rval", func() {
			e := emu.NewEmulator(emu.WithGraph(baselineGraph()),
				emu.WithProgram([]uint64{
					movImm(insts.RegTmp1, 2),
					enc(insts.OpDEG, 0, insts.RegTmp1, 0, 0),
					halt(),
				}))

			_, err := e.Run()

			Expect(err).NotTo(HaveOccurred())
			Expect(e.RegFile().ReadInt(insts.RegVal)).To(Equal(int32(4)))
		})

		It("should fault on an out-of-range node", func() {
			e := emu.NewEmulator(emu.WithGraph(baselineGraph()),
				emu.WithProgram([]uint64{
					movImm(insts.RegTmp1, 6),
					enc(insts.OpDEG, 0, insts.RegTmp1, 0, 0),
					halt(),
				}))

			status, err := e.Run()

			Expect(status).To(Equal(emu.StatusError))
			Expect(err).To(MatchError(emu.ErrNodeRange))
		})
	})
})
