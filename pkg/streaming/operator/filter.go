package operator

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// Predicate decides whether a row survives a Filter.
type Predicate func(r row.Row) bool

// Filter is a stateless executor that drops rows failing Predicate by
// clearing their visibility bit, then compacting, so an UpdateDelete whose
// paired UpdateInsert fails the predicate (or vice versa) is dropped
// together with its partner rather than surfacing an orphaned update half
// (the atomic-retraction-pair contract).
type Filter struct {
	upstream Upstream
	pred     Predicate
}

func NewFilter(upstream Upstream, pred Predicate) *Filter {
	return &Filter{upstream: upstream, pred: pred}
}

func (f *Filter) Schema() row.Schema { return upstreamSchema(f.upstream) }
func (f *Filter) PkIndices() []int   { return upstreamPkIndices(f.upstream) }

func (f *Filter) Next(ctx context.Context) (message.Message, error) {
	msg, err := f.upstream.Next(ctx)
	if err != nil || msg.Kind == message.KindBarrier {
		return msg, err
	}
	return message.NewChunk(f.apply(msg.Chunk)), nil
}

func (f *Filter) apply(in chunk.StreamChunk) chunk.StreamChunk {
	vis := make([]bool, in.Data.Capacity())
	for i := range vis {
		vis[i] = in.Data.IsVisible(i) && f.pred(in.Data.RowAt(i))
	}
	out := chunk.StreamChunk{Ops: in.Ops, Data: chunk.DataChunk{Schema: in.Data.Schema, Columns: in.Data.Columns, Visibility: vis}}
	return out.Compact()
}

// upstreamSchema/upstreamPkIndices let a purely pass-through executor
// (Filter changes no column, only visibility) describe itself without
// duplicating Schema/PkIndices bookkeeping; Upstream implementations that
// also satisfy Executor (every executor in this package does) are asked
// directly, and a bare non-Executor Upstream falls back to an empty
// schema, which only matters for test doubles.
func upstreamSchema(u Upstream) row.Schema {
	if e, ok := u.(Executor); ok {
		return e.Schema()
	}
	return row.Schema{}
}

func upstreamPkIndices(u Upstream) []int {
	if e, ok := u.(Executor); ok {
		return e.PkIndices()
	}
	return nil
}
