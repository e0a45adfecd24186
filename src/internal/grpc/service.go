package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified name of the control service
const ServiceName = "rbclauncher.control.v1.LauncherControl"

const (
	methodStatus          = "/" + ServiceName + "/Status"
	methodCheckForUpdates = "/" + ServiceName + "/CheckForUpdates"
	methodLaunch          = "/" + ServiceName + "/Launch"
	methodWatchUpdates    = "/" + ServiceName + "/WatchUpdates"
)

// ControlServer is the server API of the control service. Messages are
// protobuf well-known types, so no generated code is involved.
type ControlServer interface {
	Status(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	CheckForUpdates(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
	Launch(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error)
	WatchUpdates(req *emptypb.Empty, stream grpc.ServerStream) error
}

// ServiceDesc describes the control service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Status", Handler: statusHandler},
		{MethodName: "CheckForUpdates", Handler: checkForUpdatesHandler},
		{MethodName: "Launch", Handler: launchHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "WatchUpdates", Handler: watchUpdatesHandler, ServerStreams: true},
	},
	Metadata: "rbclauncher/control.proto",
}

func statusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodStatus}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Status(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func checkForUpdatesHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).CheckForUpdates(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodCheckForUpdates}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).CheckForUpdates(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func launchHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Launch(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodLaunch}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(ControlServer).Launch(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func watchUpdatesHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(ControlServer).WatchUpdates(in, stream)
}
