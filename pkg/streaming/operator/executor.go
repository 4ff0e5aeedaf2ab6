// Package operator implements the executors that make up a fragment's
// local pipeline: stateless row transforms, stateful aggregation and join,
// and the incremental Top-N window.
package operator

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// Executor is one node of an actor's local pipeline. Next blocks until it
// has a message to hand upstream-to-downstream: either a transformed data
// chunk or a barrier it has finished processing for its own state.
type Executor interface {
	Schema() row.Schema
	PkIndices() []int
	Next(ctx context.Context) (message.Message, error)
}

// Upstream is what a non-source executor pulls its input from: typically
// the previous executor in the chain, but source executors have no
// upstream at all.
type Upstream interface {
	Next(ctx context.Context) (message.Message, error)
}
