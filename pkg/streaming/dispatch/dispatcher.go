package dispatch

import (
	"context"
	"hash/fnv"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// Outbound is anything a Dispatcher can send a Message into: a local
// Channel or a RemoteOutbound, both of which expose the same Send shape.
type Outbound interface {
	Send(ctx context.Context, msg message.Message) error
}

// Dispatcher routes one actor's output across N downstream channels
//. Dispatch is always called once per produced Message; a
// Barrier is always broadcast to every output regardless of dispatcher
// kind.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg message.Message) error
}

func broadcastBarrier(ctx context.Context, outputs []Outbound, msg message.Message) error {
	for _, out := range outputs {
		if err := out.Send(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// Simple forwards every message unchanged to its single output (N=1).
type Simple struct {
	Output Outbound
}

func (s *Simple) Dispatch(ctx context.Context, msg message.Message) error {
	return s.Output.Send(ctx, msg)
}

// Broadcast clones every message to every output.
type Broadcast struct {
	Outputs []Outbound
}

func (b *Broadcast) Dispatch(ctx context.Context, msg message.Message) error {
	return broadcastBarrier(ctx, b.Outputs, msg)
}

// Hash partitions a chunk's rows by hash(column ColIdx) mod len(Outputs),
// sending one sub-chunk per output; barriers are broadcast regardless.
type Hash struct {
	Outputs []Outbound
	ColIdx  int
}

func (h *Hash) Dispatch(ctx context.Context, msg message.Message) error {
	if msg.Kind == message.KindBarrier {
		return broadcastBarrier(ctx, h.Outputs, msg)
	}

	n := len(h.Outputs)
	c := msg.Chunk.Compact()
	buckets := make([]struct {
		ops  []chunk.Op
		rows []row.Row
	}, n)

	for i, op := range c.Ops {
		r := c.Data.RowAt(i)
		b := hashDatum(r[h.ColIdx]) % uint32(n)
		buckets[b].ops = append(buckets[b].ops, op)
		buckets[b].rows = append(buckets[b].rows, r)
	}

	for i, out := range h.Outputs {
		if len(buckets[i].ops) == 0 {
			continue
		}
		sub := rowsToChunk(c.Data.Schema, buckets[i].ops, buckets[i].rows)
		if err := out.Send(ctx, message.NewChunk(sub)); err != nil {
			return err
		}
	}
	return nil
}

func hashDatum(d row.Datum) uint32 {
	h := fnv.New32a()
	switch {
	case d.Null:
		h.Write([]byte{0})
	default:
		switch d.Kind {
		case row.KindInt64:
			h.Write([]byte{byte(d.I64), byte(d.I64 >> 8), byte(d.I64 >> 16), byte(d.I64 >> 24),
				byte(d.I64 >> 32), byte(d.I64 >> 40), byte(d.I64 >> 48), byte(d.I64 >> 56)})
		case row.KindString:
			h.Write([]byte(d.Str))
		case row.KindBool:
			if d.B {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		case row.KindTimestamp:
			ns := d.TS.UnixNano()
			h.Write([]byte{byte(ns), byte(ns >> 8), byte(ns >> 16), byte(ns >> 24),
				byte(ns >> 32), byte(ns >> 40), byte(ns >> 48), byte(ns >> 56)})
		case row.KindDecimal:
			h.Write([]byte(d.Dec.String()))
		}
	}
	return h.Sum32()
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
