package operator

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/chunk"
	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// BarrierInjector is the control-plane side of a Source: it drives epoch
// progression by pushing barriers (and stop mutations) onto a channel the
// Source selects over alongside its raw data feed.
type BarrierInjector chan message.Barrier

// RawFeed is a Source's upstream data feed, independent of the barrier
// channel: a connector implementation (Kafka, a file tailer, a test
// fixture) need only produce StreamChunks.
type RawFeed interface {
	Next(ctx context.Context) (chunk.StreamChunk, bool, error)
}

// Source is the root executor of a fragment, combining a raw data feed
// with barrier injection. It emits no barrier of its own: every barrier it
// forwards was pushed onto its BarrierInjector.
type Source struct {
	schema   row.Schema
	pkIdx    []int
	feed     RawFeed
	barriers BarrierInjector
	started  bool
	stopped  bool
}

func NewSource(schema row.Schema, pkIdx []int, feed RawFeed, barriers BarrierInjector) *Source {
	return &Source{schema: schema, pkIdx: pkIdx, feed: feed, barriers: barriers}
}

func (s *Source) Schema() row.Schema { return s.schema }
func (s *Source) PkIndices() []int   { return s.pkIdx }

// Next always checks the barrier channel first, so a barrier the injector
// has already queued is never delayed behind a buffered data chunk.
func (s *Source) Next(ctx context.Context) (message.Message, error) {
	if s.stopped {
		return message.Message{}, errs.New(errs.InputClosed, "source: already stopped")
	}
	if !s.started {
		s.started = true
	}

	select {
	case b := <-s.barriers:
		return s.emitBarrier(b), nil
	default:
	}

	c, ok, err := s.feed.Next(ctx)
	if err != nil {
		return message.Message{}, err
	}
	if ok {
		return message.NewChunk(c), nil
	}

	select {
	case b := <-s.barriers:
		return s.emitBarrier(b), nil
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}

func (s *Source) emitBarrier(b message.Barrier) message.Message {
	if b.IsStop() {
		s.stopped = true
	}
	return message.NewBarrier(b)
}
