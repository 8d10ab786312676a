package emu

import (
	"github.com/sarchlab/graphx/frontier"
	"github.com/sarchlab/graphx/graph"
	"github.com/sarchlab/graphx/insts"
)

// frontierPair owns the two level-synchronous frontier buffers and the
// role index that FSWAP flips. Swapping exchanges roles, never contents.
type frontierPair struct {
	buf [2]frontier.Frontier
	cur int
}

// Init resets both buffers to empty queues of the given kind and restores
// the initial roles.
func (p *frontierPair) Init(kind frontier.Kind) {
	p.buf[0].Init(kind)
	p.buf[1].Init(kind)
	p.cur = 0
}

// Current returns the frontier being drained.
func (p *frontierPair) Current() *frontier.Frontier {
	return &p.buf[p.cur]
}

// Next returns the frontier being filled.
func (p *frontierPair) Next() *frontier.Frontier {
	return &p.buf[1-p.cur]
}

// Swap exchanges the roles and re-initializes the new next buffer to
// empty of the same kind.
func (p *frontierPair) Swap() {
	p.cur = 1 - p.cur
	next := p.Next()
	next.Init(next.Kind())
}

// FrontierUnit executes the frontier opcodes. Producers write to the next
// buffer, consumers read from the current one.
type FrontierUnit struct {
	regFile *RegFile
	graph   *graph.Graph
	pair    *frontierPair
}

// NewFrontierUnit creates a frontier unit over the given pair.
func NewFrontierUnit(regFile *RegFile, g *graph.Graph, pair *frontierPair) *FrontierUnit {
	return &FrontierUnit{regFile: regFile, graph: g, pair: pair}
}

// Push executes FPUSH: R[dest] onto the next frontier.
func (u *FrontierUnit) Push(inst insts.Instruction) error {
	return u.pair.Next().Push(u.regFile.ReadInt(inst.Dest))
}

// Pop executes FPOP: the oldest node of the current frontier into
// R[dest].
func (u *FrontierUnit) Pop(inst insts.Instruction) error {
	node, err := u.pair.Current().Pop()
	if err != nil {
		return err
	}
	u.regFile.WriteInt(inst.Dest, node)
	return nil
}

// Empty executes FEMPTY: the zero flag is set exactly when the current
// frontier is empty, so BZ branches at end of level.
func (u *FrontierUnit) Empty() {
	u.regFile.SetZero(u.pair.Current().Empty())
}

// Swap executes FSWAP.
func (u *FrontierUnit) Swap() {
	u.pair.Swap()
}

// Fill executes FFILL: every node id is pushed onto the current frontier.
// PageRank-style algorithms use it to seed a whole-graph sweep.
func (u *FrontierUnit) Fill() error {
	cur := u.pair.Current()
	for id := int32(0); id < u.graph.N; id++ {
		if err := cur.Push(id); err != nil {
			return err
		}
	}
	return nil
}
