package operator

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// ProjectExpr computes one output column from an input row.
type ProjectExpr func(r row.Row) row.Datum

// Project is a stateless executor that evaluates a fixed list of
// expressions over each input row, passing barriers through untouched.
type Project struct {
	upstream Upstream
	schema   row.Schema
	pkIdx    []int
	exprs    []ProjectExpr
}

func NewProject(upstream Upstream, schema row.Schema, pkIdx []int, exprs []ProjectExpr) *Project {
	return &Project{upstream: upstream, schema: schema, pkIdx: pkIdx, exprs: exprs}
}

func (p *Project) Schema() row.Schema { return p.schema }
func (p *Project) PkIndices() []int   { return p.pkIdx }

func (p *Project) Next(ctx context.Context) (message.Message, error) {
	msg, err := p.upstream.Next(ctx)
	if err != nil || msg.Kind == message.KindBarrier {
		return msg, err
	}
	return message.NewChunk(p.apply(msg.Chunk)), nil
}

func (p *Project) apply(in chunk.StreamChunk) chunk.StreamChunk {
	in = in.Compact()
	n := in.Data.Capacity()
	cols := make([][]row.Datum, len(p.exprs))
	for ci := range cols {
		cols[ci] = make([]row.Datum, n)
	}
	for i := 0; i < n; i++ {
		r := in.Data.RowAt(i)
		for ci, expr := range p.exprs {
			cols[ci][i] = expr(r)
		}
	}
	return chunk.StreamChunk{Ops: in.Ops, Data: chunk.DataChunk{Schema: p.schema, Columns: cols}}
}
