package controlpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	serviceName = "streamdb.flowcore.wire.ControlService"

	methodUpdateActorInfo = "/" + serviceName + "/UpdateActorInfo"
	methodSubmitPlan      = "/" + serviceName + "/SubmitPlan"
	methodSendBarrier     = "/" + serviceName + "/SendBarrier"
	methodSendStopBarrier = "/" + serviceName + "/SendStopBarrier"
	methodDropFragment    = "/" + serviceName + "/DropFragment"
)

// ControlClient is the client API for ControlService's five unary RPCs
//.
type ControlClient interface {
	UpdateActorInfo(ctx context.Context, in *UpdateActorInfoRequest, opts ...grpc.CallOption) (*Empty, error)
	SubmitPlan(ctx context.Context, in *SubmitPlanRequest, opts ...grpc.CallOption) (*Empty, error)
	SendBarrier(ctx context.Context, in *SendBarrierRequest, opts ...grpc.CallOption) (*Empty, error)
	SendStopBarrier(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error)
	DropFragment(ctx context.Context, in *DropFragmentRequest, opts ...grpc.CallOption) (*Empty, error)
}

type controlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) ControlClient {
	return &controlClient{cc}
}

func (c *controlClient) UpdateActorInfo(ctx context.Context, in *UpdateActorInfoRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, methodUpdateActorInfo, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) SubmitPlan(ctx context.Context, in *SubmitPlanRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, methodSubmitPlan, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) SendBarrier(ctx context.Context, in *SendBarrierRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, methodSendBarrier, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) SendStopBarrier(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, methodSendStopBarrier, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *controlClient) DropFragment(ctx context.Context, in *DropFragmentRequest, opts ...grpc.CallOption) (*Empty, error) {
	out := new(Empty)
	if err := c.cc.Invoke(ctx, methodDropFragment, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ControlServer is the server API for ControlService.
type ControlServer interface {
	UpdateActorInfo(context.Context, *UpdateActorInfoRequest) (*Empty, error)
	SubmitPlan(context.Context, *SubmitPlanRequest) (*Empty, error)
	SendBarrier(context.Context, *SendBarrierRequest) (*Empty, error)
	SendStopBarrier(context.Context, *Empty) (*Empty, error)
	DropFragment(context.Context, *DropFragmentRequest) (*Empty, error)
}

// UnimplementedControlServer can be embedded to satisfy ControlServer
// without implementing every method.
type UnimplementedControlServer struct{}

func (UnimplementedControlServer) UpdateActorInfo(context.Context, *UpdateActorInfoRequest) (*Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method UpdateActorInfo not implemented")
}

func (UnimplementedControlServer) SubmitPlan(context.Context, *SubmitPlanRequest) (*Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SubmitPlan not implemented")
}

func (UnimplementedControlServer) SendBarrier(context.Context, *SendBarrierRequest) (*Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendBarrier not implemented")
}

func (UnimplementedControlServer) SendStopBarrier(context.Context, *Empty) (*Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SendStopBarrier not implemented")
}

func (UnimplementedControlServer) DropFragment(context.Context, *DropFragmentRequest) (*Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DropFragment not implemented")
}

func controlUpdateActorInfoHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(UpdateActorInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).UpdateActorInfo(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodUpdateActorInfo}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).UpdateActorInfo(ctx, req.(*UpdateActorInfoRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controlSubmitPlanHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SubmitPlanRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).SubmitPlan(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSubmitPlan}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).SubmitPlan(ctx, req.(*SubmitPlanRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controlSendBarrierHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(SendBarrierRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).SendBarrier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSendBarrier}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).SendBarrier(ctx, req.(*SendBarrierRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func controlSendStopBarrierHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).SendStopBarrier(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodSendStopBarrier}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).SendStopBarrier(ctx, req.(*Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func controlDropFragmentHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(DropFragmentRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).DropFragment(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodDropFragment}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).DropFragment(ctx, req.(*DropFragmentRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ControlServiceDesc is the grpc.ServiceDesc RegisterControlServer installs.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UpdateActorInfo", Handler: controlUpdateActorInfoHandler},
		{MethodName: "SubmitPlan", Handler: controlSubmitPlanHandler},
		{MethodName: "SendBarrier", Handler: controlSendBarrierHandler},
		{MethodName: "SendStopBarrier", Handler: controlSendStopBarrierHandler},
		{MethodName: "DropFragment", Handler: controlDropFragmentHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wire/control.proto",
}

func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}
