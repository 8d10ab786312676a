// Package frontier provides the node containers that drive frontier-based
// graph traversal in the GraphX VM.
package frontier

import (
	"errors"
)

// Kind selects the frontier backend.
type Kind uint8

// Frontier kinds. Only Queue has a backend today; the others are
// declarable but fail all operations pending implementation.
const (
	Queue Kind = iota
	PriorityQueue
	BucketQueue
	Set
)

func (k Kind) String() string {
	switch k {
	case Queue:
		return "queue"
	case PriorityQueue:
		return "priority-queue"
	case BucketQueue:
		return "bucket-queue"
	case Set:
		return "set"
	}
	return "invalid"
}

// Capacity is the fixed queue capacity. It is a power of two so that the
// monotonic front/back counters can be masked instead of wrapped.
const Capacity = 1024

const mask = Capacity - 1

// Operation errors.
var (
	ErrFull            = errors.New("frontier is full")
	ErrEmpty           = errors.New("frontier is empty")
	ErrUnsupportedKind = errors.New("frontier kind has no backend")
)

// Frontier is a polymorphic node container. The queue backend is a ring
// buffer with monotonically increasing 64-bit front and back counters:
// front == back means empty, back - front == Capacity means full.
type Frontier struct {
	kind Kind

	data  [Capacity]int32
	front uint64
	back  uint64
}

// Init resets the frontier to empty and records its kind.
func (f *Frontier) Init(kind Kind) {
	f.kind = kind
	f.data = [Capacity]int32{}
	f.front = 0
	f.back = 0
}

// Kind returns the backend kind recorded by Init.
func (f *Frontier) Kind() Kind {
	return f.kind
}

// Push appends a node. It fails when the frontier is full.
func (f *Frontier) Push(node int32) error {
	if f.kind != Queue {
		return ErrUnsupportedKind
	}
	if f.back-f.front == Capacity {
		return ErrFull
	}
	f.data[f.back&mask] = node
	f.back++
	return nil
}

// Pop removes and returns the oldest node. It fails when the frontier is
// empty.
func (f *Frontier) Pop() (int32, error) {
	if f.kind != Queue {
		return 0, ErrUnsupportedKind
	}
	if f.front == f.back {
		return 0, ErrEmpty
	}
	node := f.data[f.front&mask]
	f.front++
	return node, nil
}

// Empty reports whether the frontier holds no nodes.
func (f *Frontier) Empty() bool {
	return f.front == f.back
}

// Len returns the number of queued nodes.
func (f *Frontier) Len() int {
	return int(f.back - f.front)
}
