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

// TopN is the three-region incremental Top-N executor: Low holds rank
// [0, offset), Mid holds rank [offset, offset+limit) and is the only
// region whose contents the downstream ever sees, High holds everything
// else. Only Mid's deltas are ever emitted; Low and High exist purely to
// make that delta computable without rescanning the whole live set on
// every input row.
type TopN struct {
	upstream Upstream
	schema   row.Schema
	pkIdx    []int
	dirs     []orderedrow.Direction

	offset int
	limit  int

	low  *managedstate.EdgeRegion
	mid  *managedstate.MidRegion
	high *managedstate.EdgeRegion

	filled bool
}

// NewTopN constructs a Top-N executor over ks, partitioning its keyspace
// into l/, m/, h/ sub-segments for the three regions' independent managed
// state.
func NewTopN(upstream Upstream, ks keyspace.Keyspace, store statestore.StateStore, schema row.Schema, pkIdx []int, dirs []orderedrow.Direction, offset, limit, cacheSize int) *TopN {
	valueKinds := make([]row.Kind, len(schema.Fields))
	for i, f := range schema.Fields {
		valueKinds[i] = f.Kind
	}
	pkKinds := make([]row.Kind, len(pkIdx))
	for i, idx := range pkIdx {
		pkKinds[i] = schema.Fields[idx].Kind
	}
	return &TopN{
		upstream: upstream,
		schema:   schema,
		pkIdx:    pkIdx,
		dirs:     dirs,
		offset:   offset,
		limit:    limit,
		low:      managedstate.NewEdgeRegion(ks.WithSegment([]byte("l/")), store, pkKinds, valueKinds, dirs, managedstate.AnchorMax, cacheSize, "low"),
		mid:      managedstate.NewMidRegion(ks.WithSegment([]byte("m/")), store, pkKinds, valueKinds, dirs, cacheSize),
		high:     managedstate.NewEdgeRegion(ks.WithSegment([]byte("h/")), store, pkKinds, valueKinds, dirs, managedstate.AnchorMin, cacheSize, "high"),
	}
}

func (t *TopN) Schema() row.Schema { return t.schema }
func (t *TopN) PkIndices() []int   { return t.pkIdx }

func (t *TopN) Next(ctx context.Context) (message.Message, error) {
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
				continue // input changed no member of Mid; nothing to emit
			}
			return message.NewChunk(out), nil
		case message.KindBarrier:
			if err := t.flush(ctx, msg.Barrier.Epoch); err != nil {
				return message.Message{}, err
			}
			return msg, nil
		default:
			return message.Message{}, errs.New(errs.Internal, "topn: unknown message kind")
		}
	}
}

// apply runs every row in c through insertOne or deleteOne in order,
// accumulating emitted output ops, and runs first-execution cache fill
// lazily before the very first row this operator ever sees.
func (t *TopN) apply(ctx context.Context, c chunk.StreamChunk) (chunk.StreamChunk, error) {
	if !t.filled {
		if err := t.fillAll(ctx); err != nil {
			return chunk.StreamChunk{}, err
		}
		t.filled = true
	}

	c = c.Compact()
	var outOps []chunk.Op
	var outRows []row.Row

	for i, op := range c.Ops {
		r := c.Data.RowAt(i)
		switch op {
		case chunk.Insert, chunk.UpdateInsert:
			ops, rows, err := t.insertOne(ctx, r)
			if err != nil {
				return chunk.StreamChunk{}, err
			}
			outOps = append(outOps, ops...)
			outRows = append(outRows, rows...)
		case chunk.Delete, chunk.UpdateDelete:
			ops, rows, err := t.deleteOne(ctx, r)
			if err != nil {
				return chunk.StreamChunk{}, err
			}
			outOps = append(outOps, ops...)
			outRows = append(outRows, rows...)
		}
	}

	return rowsToChunk(t.schema, outOps, outRows), nil
}

func (t *TopN) fillAll(ctx context.Context) error {
	if err := t.low.FillCache(ctx); err != nil {
		return err
	}
	if err := t.mid.FillCache(ctx); err != nil {
		return err
	}
	return t.high.FillCache(ctx)
}

func (t *TopN) ord(r row.Row) orderedrow.OrderedRow {
	return orderedrow.New(r, t.pkIdx, t.dirs)
}

// insertOne implements the Top-N insert algorithm: Low saturates before
// Mid, Mid saturates before High, and only Mid's net effect is emitted.
func (t *TopN) insertOne(ctx context.Context, r row.Row) ([]chunk.Op, []row.Row, error) {
	k := t.ord(r)

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

	var ops []chunk.Op
	var rows []row.Row
	midTopR, midTopK, ok, err := t.mid.Top(ctx)
	if err != nil {
		return nil, nil, err
	}
	if ok && candK.Less(midTopK) {
		if _, _, _, err := t.mid.PopTop(ctx); err != nil {
			return nil, nil, err
		}
		t.mid.Insert(candK, candR)
		ops = append(ops, chunk.Delete, chunk.Insert)
		rows = append(rows, midTopR, candR)
		candK, candR = midTopK, midTopR
	}
	t.high.Insert(candK, candR)
	return ops, rows, nil
}

// deleteOne implements the Top-N delete algorithm.
func (t *TopN) deleteOne(ctx context.Context, r row.Row) ([]chunk.Op, []row.Row, error) {
	k := t.ord(r)

	if t.mid.TotalCount() == t.limit {
		if _, maxMid, ok, err := t.mid.Top(ctx); err == nil && ok && maxMid.Less(k) {
			t.high.Delete(k)
			return nil, nil, nil
		} else if err != nil {
			return nil, nil, err
		}
	}

	if t.low.TotalCount() == t.offset {
		if _, maxLow, ok, err := t.low.Extreme(ctx); err != nil {
			return nil, nil, err
		} else if ok && maxLow.Less(k) {
			t.mid.Delete(k)
			ops := []chunk.Op{chunk.UpdateDelete}
			rows := []row.Row{r}
			if t.high.TotalCount() > 0 {
				promotedR, promotedK, ok, err := t.high.PopExtreme(ctx)
				if err != nil {
					return nil, nil, err
				}
				if ok {
					t.mid.Insert(promotedK, promotedR)
					ops = append(ops, chunk.Insert)
					rows = append(rows, promotedR)
				}
			}
			return ops, rows, nil
		}
	}

	t.low.Delete(k)
	var ops []chunk.Op
	var rows []row.Row
	if t.mid.TotalCount() > 0 {
		demotedR, demotedK, ok, err := t.mid.PopBottom(ctx)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			ops = append(ops, chunk.UpdateDelete)
			rows = append(rows, demotedR)
			t.low.Insert(demotedK, demotedR)
			if t.mid.TotalCount() == t.limit-1 && t.high.TotalCount() > 0 {
				promotedR, promotedK, ok, err := t.high.PopExtreme(ctx)
				if err != nil {
					return nil, nil, err
				}
				if ok {
					t.mid.Insert(promotedK, promotedR)
					ops = append(ops, chunk.Insert)
					rows = append(rows, promotedR)
				}
			}
		}
	}
	return ops, rows, nil
}

func (t *TopN) flush(ctx context.Context, epoch uint64) error {
	if err := t.low.Flush(ctx, epoch); err != nil {
		return err
	}
	if err := t.mid.Flush(ctx, epoch); err != nil {
		return err
	}
	return t.high.Flush(ctx, epoch)
}

func rowsToChunk(schema row.Schema, ops []chunk.Op, rows []row.Row) chunk.StreamChunk {
	cols := make([][]row.Datum, len(schema.Fields))
	for ci := range cols {
		cols[ci] = make([]row.Datum, len(rows))
	}
	for ri, r := range rows {
		for ci, d := range r {
			cols[ci][ri] = d
		}
	}
	return chunk.StreamChunk{Ops: ops, Data: chunk.DataChunk{Schema: schema, Columns: cols}}
}
