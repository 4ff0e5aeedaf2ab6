package dispatch

import (
	"context"

	"github.com/streamdb/flowcore/pkg/streaming/message"
)

// EnvelopeSource is satisfied by the generated gRPC client stream for
// ExchangeService.Pull (pkg/wire/exchangepb): each Recv yields one decoded
// Message already reconstructed from the wire envelope. Keeping this as a
// narrow interface here, rather than importing the grpc-generated types
// directly, lets the dispatch package stay transport-agnostic; only
// pkg/wire/exchangepb needs to know about protobuf and grpc.
type EnvelopeSource interface {
	Recv() (message.Message, error)
}

// RemoteInbound is the downstream side of a remote edge: it
// pulls messages off a streaming RPC and forwards them into a local,
// bounded Channel, so the rest of the actor pipeline never has to
// distinguish a local edge from a remote one. Forwarding blocks on the
// local channel exactly like a local Send would, so backpressure still
// propagates end-to-end: a slow downstream actor stalls this forwarder,
// which stalls EnvelopeSource.Recv, which (at the upstream gRPC server)
// stalls draining the upstream actor's own outbound buffer.
type RemoteInbound struct {
	src   EnvelopeSource
	local *Channel
}

func NewRemoteInbound(src EnvelopeSource, capacity int) *RemoteInbound {
	return &RemoteInbound{src: src, local: NewChannel(capacity)}
}

// Run pumps messages from src into the local channel until src errors or
// ctx is cancelled. Callers run this in its own goroutine and read
// results via Recv.
func (r *RemoteInbound) Run(ctx context.Context) error {
	for {
		msg, err := r.src.Recv()
		if err != nil {
			return err
		}
		if err := r.local.Send(ctx, msg); err != nil {
			return err
		}
	}
}

func (r *RemoteInbound) Recv(ctx context.Context) (message.Message, error) {
	return r.local.Recv(ctx)
}

// RemoteOutbound is the upstream side of a remote edge: a plain local
// Channel that the actor's dispatcher sends into exactly as it would a
// local edge. The exchange gRPC server (pkg/wire/exchangepb) drains it
// and streams each message to whichever downstream node asked for this
// edge via Pull.
type RemoteOutbound struct {
	*Channel
}

func NewRemoteOutbound(capacity int) *RemoteOutbound {
	return &RemoteOutbound{Channel: NewChannel(capacity)}
}
