package grpc_control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Service and method names of the control API. Messages are protobuf
// well-known types so no generated code is needed on either side.
const (
	ServiceName           = "quotes.control.v1.QuoteControl"
	listSubscribersMethod = "/" + ServiceName + "/ListSubscribers"
	evictSubscriberMethod = "/" + ServiceName + "/EvictSubscriber"
	getStatusMethod       = "/" + ServiceName + "/GetStatus"
)

// QuoteControlServer is the server API for the control service.
type QuoteControlServer interface {
	ListSubscribers(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	EvictSubscriber(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterQuoteControlServer attaches srv to s.
func RegisterQuoteControlServer(s grpc.ServiceRegistrar, srv QuoteControlServer) {
	s.RegisterService(&QuoteControl_ServiceDesc, srv)
}

// -----------------------------------------------------------------------------

func _QuoteControl_ListSubscribers_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QuoteControlServer).ListSubscribers(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listSubscribersMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QuoteControlServer).ListSubscribers(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _QuoteControl_EvictSubscriber_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QuoteControlServer).EvictSubscriber(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: evictSubscriberMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QuoteControlServer).EvictSubscriber(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _QuoteControl_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(QuoteControlServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatusMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(QuoteControlServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// QuoteControl_ServiceDesc describes the control service for grpc.Server.
var QuoteControl_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QuoteControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListSubscribers", Handler: _QuoteControl_ListSubscribers_Handler},
		{MethodName: "EvictSubscriber", Handler: _QuoteControl_EvictSubscriber_Handler},
		{MethodName: "GetStatus", Handler: _QuoteControl_GetStatus_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quotes/control/v1/control.proto",
}

// -----------------------------------------------------------------------------

// QuoteControlClient calls the control service.
type QuoteControlClient struct {
	cc grpc.ClientConnInterface
}

func NewQuoteControlClient(cc grpc.ClientConnInterface) *QuoteControlClient {
	return &QuoteControlClient{cc: cc}
}

func (c *QuoteControlClient) ListSubscribers(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, listSubscribersMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *QuoteControlClient) EvictSubscriber(ctx context.Context, key string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, evictSubscriberMethod, wrapperspb.String(key), new(emptypb.Empty), opts...)
}

func (c *QuoteControlClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, getStatusMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
