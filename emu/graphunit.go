package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/graphx/graph"
	"github.com/sarchlab/graphx/insts"
)

// Graph unit errors.
var (
	ErrIteratorIndex = errors.New("iterator index out of range")
	ErrNodeRange     = errors.New("node id outside graph")
)

// GraphUnit executes the graph iteration opcodes against the read-only
// CSR store. Iterator cursors live in the register file so Reset clears
// them with everything else.
type GraphUnit struct {
	regFile *RegFile
	graph   *graph.Graph
}

// NewGraphUnit creates a graph unit over the given store.
func NewGraphUnit(regFile *RegFile, g *graph.Graph) *GraphUnit {
	return &GraphUnit{regFile: regFile, graph: g}
}

// iterIndex validates the iterator index operand of NITER/NNEXT.
func iterIndex(inst insts.Instruction) (int, error) {
	i := inst.ImmInt()
	if i < 0 || i > 3 {
		return 0, fmt.Errorf("%w: %d", ErrIteratorIndex, i)
	}
	return int(i), nil
}

// IterInit executes NITER: rewind neighbor cursor i.
func (u *GraphUnit) IterInit(inst insts.Instruction) error {
	i, err := iterIndex(inst)
	if err != nil {
		return err
	}
	u.regFile.NIter[i] = 0
	return nil
}

// IterNext executes NNEXT: load the next neighbor and weight of Rnode
// through cursor i, or set the zero flag when the row is exhausted.
func (u *GraphUnit) IterNext(inst insts.Instruction) error {
	i, err := iterIndex(inst)
	if err != nil {
		return err
	}

	node := u.regFile.ReadInt(insts.RegNode)
	if node < 0 || node >= u.graph.N {
		u.regFile.SetZero(true)
		return nil
	}

	pos := u.graph.RowIndex[node] + int32(u.regFile.NIter[i])
	if pos >= u.graph.RowIndex[node+1] {
		u.regFile.SetZero(true)
		return nil
	}

	u.regFile.WriteInt(insts.RegNbr, u.graph.ColIndex[pos])
	u.regFile.WriteInt(insts.RegVal, u.graph.Values[pos])
	u.regFile.NIter[i]++
	u.regFile.SetZero(false)
	return nil
}

// EdgeInit executes EITER: start the global edge walk at node 0.
func (u *GraphUnit) EdgeInit() {
	u.regFile.EIter = 0
	u.regFile.WriteInt(insts.RegNode, 0)
}

// EdgeNext executes ENEXT: load the next edge of the global walk,
// skipping as many empty rows as needed, or set the zero flag when the
// walk is complete.
func (u *GraphUnit) EdgeNext() {
	node := u.regFile.ReadInt(insts.RegNode)
	if node < 0 {
		node = 0
		u.regFile.EIter = 0
	}

	for node < u.graph.N &&
		int32(u.regFile.EIter) >= u.graph.Degree(node) {
		node++
		u.regFile.EIter = 0
	}
	u.regFile.WriteInt(insts.RegNode, node)

	if node >= u.graph.N {
		u.regFile.SetZero(true)
		return
	}

	pos := u.graph.RowIndex[node] + int32(u.regFile.EIter)
	u.regFile.WriteInt(insts.RegNbr, u.graph.ColIndex[pos])
	u.regFile.WriteInt(insts.RegVal, u.graph.Values[pos])
	u.regFile.EIter++
	u.regFile.SetZero(false)
}

// HasEdge executes HASE: the zero flag is cleared exactly when the edge
// Rnode->Rnbr exists, so BNZ branches on hit.
func (u *GraphUnit) HasEdge() {
	node := u.regFile.ReadInt(insts.RegNode)
	nbr := u.regFile.ReadInt(insts.RegNbr)

	exists := node >= 0 && node < u.graph.N && u.graph.HasEdge(node, nbr)
	u.regFile.SetZero(!exists)
}

// Degree executes DEG: the degree of node R[dest] is written into Rval.
func (u *GraphUnit) Degree(inst insts.Instruction) error {
	node := u.regFile.ReadInt(inst.Dest)
	if node < 0 || node >= u.graph.N {
		return fmt.Errorf("%w: %d", ErrNodeRange, node)
	}
	u.regFile.WriteInt(insts.RegVal, u.graph.Degree(node))
	return nil
}
