package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// EngineServer is the server-side contract for the Engine service: one
// method per RPC in rpc/engine.proto.
type EngineServer interface {
	SubmitOrder(context.Context, *SubmitOrderRequest) (*SubmitOrderResponse, error)
	GetTopOfBook(context.Context, *GetTopOfBookRequest) (*GetTopOfBookResponse, error)
	GetBookDepth(context.Context, *GetBookDepthRequest) (*GetBookDepthResponse, error)
	GetRecentTrades(context.Context, *GetRecentTradesRequest) (*GetRecentTradesResponse, error)
	Health(context.Context, *HealthRequest) (*HealthResponse, error)
}

const serviceName = "matchcore.Engine"

func submitOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SubmitOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).SubmitOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/SubmitOrder"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).SubmitOrder(ctx, req.(*SubmitOrderRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getTopOfBookHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetTopOfBookRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).GetTopOfBook(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetTopOfBook"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).GetTopOfBook(ctx, req.(*GetTopOfBookRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getBookDepthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetBookDepthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).GetBookDepth(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetBookDepth"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).GetBookDepth(ctx, req.(*GetBookDepthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func getRecentTradesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetRecentTradesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).GetRecentTrades(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/GetRecentTrades"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).GetRecentTrades(ctx, req.(*GetRecentTradesRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func healthHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HealthRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(EngineServer).Health(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: serviceName + "/Health"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(EngineServer).Health(ctx, req.(*HealthRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// engineServiceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit from rpc/engine.proto.
var engineServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "SubmitOrder", Handler: submitOrderHandler},
		{MethodName: "GetTopOfBook", Handler: getTopOfBookHandler},
		{MethodName: "GetBookDepth", Handler: getBookDepthHandler},
		{MethodName: "GetRecentTrades", Handler: getRecentTradesHandler},
		{MethodName: "Health", Handler: healthHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "rpc/engine.proto",
}

// RegisterEngineServer registers srv with s under the Engine service name.
func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&engineServiceDesc, srv)
}
