package manager

import (
	"context"
	"testing"
	"time"

	"github.com/streamdb/flowcore/pkg/streaming/keyspace"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/operator"
	"github.com/streamdb/flowcore/pkg/streaming/row"
	"github.com/streamdb/flowcore/pkg/streaming/statestore"
)

// stepUpstream emits whatever is sent on ch, blocking until it is.
type stepUpstream struct {
	ch chan message.Message
}

func (s *stepUpstream) Next(ctx context.Context) (message.Message, error) {
	select {
	case m := <-s.ch:
		return m, nil
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}

// TestJoinAdapterAlignsBarriersAcrossSides checks that a barrier arriving
// on one side does not pass through until the other side has delivered a
// barrier of the same epoch, and that exactly one aligned barrier is
// emitted once both have.
func TestJoinAdapterAlignsBarriersAcrossSides(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	ks := keyspace.TableRoot(1).ExecutorRoot(1)

	left := &stepUpstream{ch: make(chan message.Message)}
	right := &stepUpstream{ch: make(chan message.Message)}
	outSchema := row.Schema{Fields: []row.Field{
		{Name: "l", Kind: row.KindInt64}, {Name: "r", Kind: row.KindInt64},
	}}
	j := operator.NewJoin(left, right, ks, store, []int{0}, []int{0},
		[]row.Kind{row.KindInt64}, []row.Kind{row.KindInt64}, outSchema)
	a := newJoinAdapter(j, left, right)

	go func() { left.ch <- message.NewBarrier(message.Barrier{Epoch: 1}) }()

	done := make(chan message.Message, 1)
	errs := make(chan error, 1)
	go func() {
		m, err := a.Next(ctx)
		if err != nil {
			errs <- err
			return
		}
		done <- m
	}()

	select {
	case <-done:
		t.Fatalf("adapter emitted a barrier before the right side reached epoch 1")
	case err := <-errs:
		t.Fatalf("Next: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	right.ch <- message.NewBarrier(message.Barrier{Epoch: 1})

	select {
	case m := <-done:
		if m.Kind != message.KindBarrier || m.Barrier.Epoch != 1 {
			t.Fatalf("expected barrier epoch 1, got %+v", m)
		}
	case err := <-errs:
		t.Fatalf("Next: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatalf("adapter never emitted the aligned barrier")
	}
}

// TestJoinAdapterRejectsMismatchedEpochs checks that two sides delivering
// barriers of different epochs is reported as an error rather than
// silently emitting the first one.
func TestJoinAdapterRejectsMismatchedEpochs(t *testing.T) {
	ctx := context.Background()
	store := statestore.NewMemoryStore()
	ks := keyspace.TableRoot(2).ExecutorRoot(1)

	left := &stepUpstream{ch: make(chan message.Message, 1)}
	right := &stepUpstream{ch: make(chan message.Message, 1)}
	outSchema := row.Schema{Fields: []row.Field{
		{Name: "l", Kind: row.KindInt64}, {Name: "r", Kind: row.KindInt64},
	}}
	j := operator.NewJoin(left, right, ks, store, []int{0}, []int{0},
		[]row.Kind{row.KindInt64}, []row.Kind{row.KindInt64}, outSchema)
	a := newJoinAdapter(j, left, right)

	left.ch <- message.NewBarrier(message.Barrier{Epoch: 1})
	right.ch <- message.NewBarrier(message.Barrier{Epoch: 2})

	if _, err := a.Next(ctx); err == nil {
		t.Fatalf("expected a mismatched-epoch error, got nil")
	}
}
