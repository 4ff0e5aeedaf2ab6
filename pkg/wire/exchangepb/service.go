package exchangepb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const exchangePullMethodName = "/streamdb.flowcore.wire.ExchangeService/Pull"

// ExchangeClient is the client API for ExchangeService, in the shape
// protoc-gen-go-grpc would emit for a single server-streaming method.
type ExchangeClient interface {
	Pull(ctx context.Context, in *PullRequest, opts ...grpc.CallOption) (Exchange_PullClient, error)
}

type exchangeClient struct {
	cc grpc.ClientConnInterface
}

func NewExchangeClient(cc grpc.ClientConnInterface) ExchangeClient {
	return &exchangeClient{cc}
}

func (c *exchangeClient) Pull(ctx context.Context, in *PullRequest, opts ...grpc.CallOption) (Exchange_PullClient, error) {
	stream, err := c.cc.NewStream(ctx, &ExchangeServiceDesc.Streams[0], exchangePullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &exchangePullClient{stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// Exchange_PullClient is the streaming handle a caller Recv()s envelopes
// from until the upstream closes the edge.
type Exchange_PullClient interface {
	Recv() (*ExchangeEnvelope, error)
	grpc.ClientStream
}

type exchangePullClient struct {
	grpc.ClientStream
}

func (x *exchangePullClient) Recv() (*ExchangeEnvelope, error) {
	m := new(ExchangeEnvelope)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ExchangeServer is the server API for ExchangeService.
type ExchangeServer interface {
	Pull(*PullRequest, Exchange_PullServer) error
}

// UnimplementedExchangeServer can be embedded to satisfy ExchangeServer
// without implementing every method, matching protoc-gen-go-grpc's
// forward-compatibility convention.
type UnimplementedExchangeServer struct{}

func (UnimplementedExchangeServer) Pull(*PullRequest, Exchange_PullServer) error {
	return status.Errorf(codes.Unimplemented, "method Pull not implemented")
}

type Exchange_PullServer interface {
	Send(*ExchangeEnvelope) error
	grpc.ServerStream
}

type exchangePullServer struct {
	grpc.ServerStream
}

func (x *exchangePullServer) Send(m *ExchangeEnvelope) error {
	return x.ServerStream.SendMsg(m)
}

func exchangePullHandler(srv interface{}, stream grpc.ServerStream) error {
	m := new(PullRequest)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(ExchangeServer).Pull(m, &exchangePullServer{stream})
}

// ExchangeServiceDesc is the grpc.ServiceDesc RegisterExchangeServer
// installs; exported so the client stub above can reference its one
// stream descriptor without a package-level init cycle.
var ExchangeServiceDesc = grpc.ServiceDesc{
	ServiceName: "streamdb.flowcore.wire.ExchangeService",
	HandlerType: (*ExchangeServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Pull",
			Handler:       exchangePullHandler,
			ServerStreams: true,
		},
	},
	Metadata: "wire/exchange.proto",
}

func RegisterExchangeServer(s grpc.ServiceRegistrar, srv ExchangeServer) {
	s.RegisterService(&ExchangeServiceDesc, srv)
}
