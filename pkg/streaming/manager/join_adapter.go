package manager

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/errs"
	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/operator"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// joinAdapter fans the two independent upstreams of an operator.Join into
// the single blocking Next shape every other node in this package expects,
// so the fragment actor loop never needs to know a join ran underneath it.
// It pumps each side in its own goroutine into a shared result channel and
// feeds whichever message arrives first to Join.NextFromSide -- except for
// barriers, which it aligns itself: a side that has delivered barrier E is
// gated from fetching anything further until the other side has also
// delivered barrier E, so one input can never run ahead to epoch E+1 while
// the other is still mid-epoch-E, and exactly one epoch-E barrier is ever
// emitted downstream.
type joinAdapter struct {
	j           *operator.Join
	left, right operator.Upstream
	out         chan sideResult

	// leftGate/rightGate each grant one more u.Next call to that side's
	// pump; a pump blocks on its gate before fetching, so withholding a
	// gate is how this adapter pauses a side that is waiting on alignment.
	leftGate, rightGate chan struct{}
	started             bool

	// barrier alignment state; pendingEpoch is nil when no barrier is
	// currently pending on either side.
	pendingEpoch *uint64
	pendingMsg   message.Message
	arrived      map[operator.Side]bool
}

type sideResult struct {
	side operator.Side
	msg  message.Message
	err  error
}

func newJoinAdapter(j *operator.Join, left, right operator.Upstream) *joinAdapter {
	return &joinAdapter{
		j: j, left: left, right: right,
		out:       make(chan sideResult),
		leftGate:  make(chan struct{}, 1),
		rightGate: make(chan struct{}, 1),
	}
}

func (a *joinAdapter) Schema() row.Schema { return a.j.Schema() }
func (a *joinAdapter) PkIndices() []int   { return a.j.PkIndices() }

func (a *joinAdapter) gateFor(side operator.Side) chan struct{} {
	if side == operator.Left {
		return a.leftGate
	}
	return a.rightGate
}

func (a *joinAdapter) Next(ctx context.Context) (message.Message, error) {
	if !a.started {
		a.started = true
		go a.pump(ctx, operator.Left, a.left, a.leftGate)
		go a.pump(ctx, operator.Right, a.right, a.rightGate)
		a.leftGate <- struct{}{}
		a.rightGate <- struct{}{}
	}
	for {
		select {
		case r := <-a.out:
			if r.err != nil {
				return message.Message{}, r.err
			}
			if r.msg.Kind == message.KindBarrier {
				out, ready, err := a.align(r.side, r.msg)
				if err != nil {
					return message.Message{}, err
				}
				if !ready {
					continue // still waiting on the other side's matching barrier
				}
				flushed, err := a.j.NextFromSide(ctx, r.side, out)
				if err != nil {
					return message.Message{}, err
				}
				a.leftGate <- struct{}{}
				a.rightGate <- struct{}{}
				return flushed, nil
			}
			out, err := a.j.NextFromSide(ctx, r.side, r.msg)
			if err != nil {
				return message.Message{}, err
			}
			a.gateFor(r.side) <- struct{}{}
			return out, nil
		case <-ctx.Done():
			return message.Message{}, ctx.Err()
		}
	}
}

// align records that side has delivered a barrier and reports whether both
// sides have now delivered a barrier of the same epoch. Deliberately does
// not refill either gate: the side that just delivered a barrier stays
// paused until alignment completes, win or lose.
func (a *joinAdapter) align(side operator.Side, msg message.Message) (message.Message, bool, error) {
	epoch := msg.Barrier.Epoch
	if a.pendingEpoch == nil {
		e := epoch
		a.pendingEpoch = &e
		a.pendingMsg = msg
		a.arrived = map[operator.Side]bool{side: true}
		return message.Message{}, false, nil
	}
	if epoch != *a.pendingEpoch {
		return message.Message{}, false, errs.New(errs.Internal,
			"join: barrier epoch mismatch between sides: have %d pending, got %d from side %d", *a.pendingEpoch, epoch, side)
	}
	a.arrived[side] = true
	if len(a.arrived) < 2 {
		return message.Message{}, false, nil
	}
	out := a.pendingMsg
	a.pendingEpoch = nil
	a.pendingMsg = message.Message{}
	a.arrived = nil
	return out, true, nil
}

// pump drains one side's upstream into the shared result channel, one
// message at a time: it waits for a gate signal before every u.Next call,
// so the adapter can withhold the gate to pause this side mid-alignment.
func (a *joinAdapter) pump(ctx context.Context, side operator.Side, u operator.Upstream, gate chan struct{}) {
	for {
		select {
		case <-gate:
		case <-ctx.Done():
			return
		}
		msg, err := u.Next(ctx)
		select {
		case a.out <- sideResult{side: side, msg: msg, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}
