package operator

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/managedstate"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// AppendOnlyTopN is the Top-N specialization for an append-only input
// stream: no row is ever deleted, so there is no need for a
// High region to receive overflow that might later be needed again --
// once a row ranks past Mid's top it can never resurface, and is
// simply discarded.
type AppendOnlyTopN struct {
	upstream Upstream
	schema   row.Schema
	pkIdx    []int
	dirs     []orderedrow.Direction

	offset int
	limit  int

	low    *managedstate.EdgeRegion
	mid    *managedstate.MidRegion
	filled bool
}

func NewAppendOnlyTopN(upstream Upstream, ks keyspace.Keyspace, store statestore.StateStore, schema row.Schema, pkIdx []int, dirs []orderedrow.Direction, offset, limit, cacheSize int) *AppendOnlyTopN {
	valueKinds := make([]row.Kind, len(schema.Fields))
	for i, f := range schema.Fields {
		valueKinds[i] = f.Kind
	}
	pkKinds := make([]row.Kind, len(pkIdx))
	for i, idx := range pkIdx {
		pkKinds[i] = schema.Fields[idx].Kind
	}
	return &AppendOnlyTopN{
		upstream: upstream,
		schema:   schema,
		pkIdx:    pkIdx,
		dirs:     dirs,
		offset:   offset,
		limit:    limit,
		low:      managedstate.NewEdgeRegion(ks.WithSegment([]byte("l/")), store, pkKinds, valueKinds, dirs, managedstate.AnchorMax, cacheSize, "low"),
		mid:      managedstate.NewMidRegion(ks.WithSegment([]byte("m/")), store, pkKinds, valueKinds, dirs, cacheSize),
	}
}

func (t *AppendOnlyTopN) Schema() row.Schema { return t.schema }
func (t *AppendOnlyTopN) PkIndices() []int   { return t.pkIdx }

func (t *AppendOnlyTopN) Next(ctx context.Context) (message.Message, error) {
	for {
		msg, err := t.upstream.Next(ctx)
		if err != nil {
			return message.Message{}, err
		}
		switch msg.Kind {
		case message.KindChunk:
			out, err := t.apply(ctx, msg.Chunk)
			if err != nil {
				return message.Message{}, err
			}
			if out.Data.Capacity() == 0 {
				continue
			}
			return message.NewChunk(out), nil
		case message.KindBarrier:
			if err := t.low.Flush(ctx, msg.Barrier.Epoch); err != nil {
				return message.Message{}, err
			}
			if err := t.mid.Flush(ctx, msg.Barrier.Epoch); err != nil {
				return message.Message{}, err
			}
			return msg, nil
		default:
			return message.Message{}, errs.New(errs.Internal, "appendonly_topn: unknown message kind")
		}
	}
}

func (t *AppendOnlyTopN) apply(ctx context.Context, c chunk.StreamChunk) (chunk.StreamChunk, error) {
	if !t.filled {
		if err := t.low.FillCache(ctx); err != nil {
			return chunk.StreamChunk{}, err
		}
		if err := t.mid.FillCache(ctx); err != nil {
			return chunk.StreamChunk{}, err
		}
		t.filled = true
	}

	c = c.Compact()
	var outOps []chunk.Op
	var outRows []row.Row

	for i, op := range c.Ops {
		if op != chunk.Insert {
			return chunk.StreamChunk{}, errs.New(errs.Internal, "appendonly_topn: received non-insert op on an append-only input")
		}
		r := c.Data.RowAt(i)
		ops, rows, err := t.insertOne(ctx, r)
		if err != nil {
			return chunk.StreamChunk{}, err
		}
		outOps = append(outOps, ops...)
		outRows = append(outRows, rows...)
	}
	return rowsToChunk(t.schema, outOps, outRows), nil
}

func (t *AppendOnlyTopN) insertOne(ctx context.Context, r row.Row) ([]chunk.Op, []row.Row, error) {
	k := orderedrow.New(r, t.pkIdx, t.dirs)

	if t.low.TotalCount() < t.offset {
		t.low.Insert(k, r)
		return nil, nil, nil
	}

	candK, candR := k, r
	if _, maxLow, ok, err := t.low.Extreme(ctx); err != nil {
		return nil, nil, err
	} else if ok && k.Less(maxLow) {
		evictedR, _, _, err := t.low.PopExtreme(ctx)
		if err != nil {
			return nil, nil, err
		}
		t.low.Insert(k, r)
		candK, candR = maxLow, evictedR
	}

	if t.mid.TotalCount() < t.limit {
		t.mid.Insert(candK, candR)
		return []chunk.Op{chunk.Insert}, []row.Row{candR}, nil
	}

	midTopR, midTopK, ok, err := t.mid.Top(ctx)
	if err != nil {
		return nil, nil, err
	}
	if ok && candK.Less(midTopK) {
		if _, _, _, err := t.mid.PopTop(ctx); err != nil {
			return nil, nil, err
		}
		t.mid.Insert(candK, candR)
		return []chunk.Op{chunk.Delete, chunk.Insert}, []row.Row{midTopR, candR}, nil
	}
	// candidate ranks at or past Mid's top and there is no High to receive it:
	// it is discarded, never to resurface (append-only input never deletes).
	return nil, nil, nil
}
