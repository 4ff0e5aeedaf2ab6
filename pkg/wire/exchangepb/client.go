package exchangepb

import (
	"context"

	"google.golang.org/grpc"

	"github.com/streamdb/flowcore/pkg/streaming/message"
	"github.com/streamdb/flowcore/pkg/streaming/row"
)

// Client adapts the generated-style ExchangeClient stub to the
// dispatch.EnvelopeSource shape dispatch.RemoteInbound expects, decoding
// each envelope against the edge's statically-known schema.
type Client struct {
	stream Exchange_PullClient
	schema row.Schema
}

// Dial opens a Pull stream for one remote edge against the worker at
// addr, following the usual dial-then-subscribe pattern for a long-lived
// streaming RPC.
func Dial(ctx context.Context, addr string, up, down uint32, schema row.Schema, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	}, opts...)
	conn, err := grpc.DialContext(ctx, addr, dialOpts...)
	if err != nil {
		return nil, nil, err
	}
	cli := NewExchangeClient(conn)
	stream, err := cli.Pull(ctx, &PullRequest{UpFragmentID: up, DownFragmentID: down})
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return &Client{stream: stream, schema: schema}, conn, nil
}

// Recv satisfies dispatch.EnvelopeSource.
func (c *Client) Recv() (message.Message, error) {
	env, err := c.stream.Recv()
	if err != nil {
		return message.Message{}, err
	}
	return DecodeMessage(env, c.schema)
}
