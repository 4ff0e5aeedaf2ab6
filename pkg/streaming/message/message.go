// Package message defines the two-variant Message that flows on every
// channel: a Chunk of row changes, or a Barrier marking an epoch boundary.
package message

import "github.com/streamdb/flowcore/pkg/streaming/chunk"

// MutationKind tags the optional payload carried by a Barrier.
type MutationKind int

const (
	MutationNone MutationKind = iota
	MutationStop
	MutationAddOutput
)

// Mutation is the barrier's optional control payload.
type Mutation struct {
	Kind        MutationKind
	AddOutputID uint32 // meaningful only when Kind == MutationAddOutput
}

// Barrier is an in-band control message marking an epoch boundary. Epochs
// emitted by a source never decrease.
type Barrier struct {
	Epoch    uint64
	Mutation Mutation
}

func (b Barrier) IsStop() bool { return b.Mutation.Kind == MutationStop }

// Kind tags which variant a Message holds.
type Kind int

const (
	KindChunk Kind = iota
	KindBarrier
)

// Message is the tagged union carried by every channel: exactly one of
// Chunk or Barrier is meaningful, selected by Kind.
type Message struct {
	Kind    Kind
	Chunk   chunk.StreamChunk
	Barrier Barrier
}

func NewChunk(c chunk.StreamChunk) Message {
	return Message{Kind: KindChunk, Chunk: c}
}

func NewBarrier(b Barrier) Message {
	return Message{Kind: KindBarrier, Barrier: b}
}
