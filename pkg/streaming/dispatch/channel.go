// Package dispatch implements the fan-out side of an actor: the
// dispatcher that routes one executor's output across its downstream
// channels, and the bounded-capacity channel fabric those
// channels are built from, local and remote.
package dispatch

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/message"
)

// DefaultCapacity is the bounded FIFO depth of a channel absent explicit
// configuration.
const DefaultCapacity = 16

// Channel is the bounded FIFO of Messages owned by one directed edge
// (up_id, down_id). A full channel blocks Send until the receiver drains
// it, giving end-to-end backpressure without any sender-side buffering
// beyond the channel's own capacity.
type Channel struct {
	ch chan message.Message
}

func NewChannel(capacity int) *Channel {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel{ch: make(chan message.Message, capacity)}
}

// Send blocks until the message is buffered or ctx is cancelled.
func (c *Channel) Send(ctx context.Context, msg message.Message) error {
	select {
	case c.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Recv blocks until a message is available or ctx is cancelled.
func (c *Channel) Recv(ctx context.Context) (message.Message, error) {
	select {
	case msg := <-c.ch:
		return msg, nil
	case <-ctx.Done():
		return message.Message{}, ctx.Err()
	}
}

// Close marks the channel as having no further sends. A downstream Recv
// past this point should be driven by the caller detecting the producing
// actor's own termination rather than by reading from a closed channel,
// since a live goroutine closing a channel it might still write to is a
// panic waiting to happen; Close exists for the local in-process case
// where the owning actor has genuinely exited.
func (c *Channel) Close() { close(c.ch) }
