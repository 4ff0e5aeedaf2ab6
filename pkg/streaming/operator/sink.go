package operator

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/orderedrow"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/rowcodec"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// Sink is the terminal executor of a materialized-view fragment: it
// applies every row change to a keyed table in the state store, buffering
// writes between barriers and flushing them as one batch at each barrier
// it forwards, the same cache/store discipline the Top-N regions use.
type Sink struct {
	upstream Upstream
	ks       keyspace.Keyspace
	store    statestore.StateStore
	pkIdx    []int
	pkKinds  []row.Kind
	dirs     []orderedrow.Direction

	pending map[string]*row.Row // nil value means delete
}

func NewSink(upstream Upstream, ks keyspace.Keyspace, store statestore.StateStore, pkIdx []int, pkKinds []row.Kind) *Sink {
	dirs := make([]orderedrow.Direction, len(pkIdx))
	return &Sink{
		upstream: upstream,
		ks:       ks,
		store:    store,
		pkIdx:    pkIdx,
		pkKinds:  pkKinds,
		dirs:     dirs,
		pending:  make(map[string]*row.Row),
	}
}

func (s *Sink) Schema() row.Schema { return upstreamSchema(s.upstream) }
func (s *Sink) PkIndices() []int   { return s.pkIdx }

// Next consumes chunks into the pending buffer until it reaches a
// barrier, flushes, and returns the barrier -- a Sink never hands a data
// chunk onward, since it is always the last executor in its fragment.
func (s *Sink) Next(ctx context.Context) (message.Message, error) {
	for {
		msg, err := s.upstream.Next(ctx)
		if err != nil {
			return message.Message{}, err
		}
		switch msg.Kind {
		case message.KindChunk:
			s.apply(msg.Chunk)
		case message.KindBarrier:
			if err := s.flush(ctx, msg.Barrier.Epoch); err != nil {
				return message.Message{}, err
			}
			return msg, nil
		default:
			return message.Message{}, errs.New(errs.Internal, "sink: unknown message kind")
		}
	}
}

func (s *Sink) apply(c chunk.StreamChunk) {
	c = c.Compact()
	for i, op := range c.Ops {
		if !c.Data.IsVisible(i) {
			continue
		}
		r := c.Data.RowAt(i)
		ord := orderedrow.New(r, s.pkIdx, s.dirs)
		key := string(ord.Serialize())
		switch op {
		case chunk.Insert, chunk.UpdateInsert:
			cp := r.Clone()
			s.pending[key] = &cp
		case chunk.Delete, chunk.UpdateDelete:
			s.pending[key] = nil
		}
	}
}

func (s *Sink) flush(ctx context.Context, epoch uint64) error {
	if len(s.pending) == 0 {
		return nil
	}
	ops := make([]statestore.WriteOp, 0, len(s.pending))
	for k, v := range s.pending {
		key := s.ks.Key([]byte(k))
		if v == nil {
			ops = append(ops, statestore.WriteOp{Key: key, Kind: statestore.Del})
		} else {
			ops = append(ops, statestore.WriteOp{Key: key, Value: rowcodec.Encode(*v), Kind: statestore.Put})
		}
	}
	if err := s.store.WriteBatch(ctx, epoch, ops); err != nil {
		return errs.Wrap(errs.StateStoreIO, err)
	}
	s.pending = make(map[string]*row.Row)
	return nil
}
