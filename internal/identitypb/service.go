// Package identitypb defines the identity.v1.Identity gRPC service. Every
// message travels as a google.protobuf.Struct, so the service descriptor,
// client and server glue are written by hand instead of generated. The
// object layout inside each Struct is declared in identity/v1/identity.proto.
package identitypb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "identity.v1.Identity"

// Full method names.
const (
	MethodSignIn       = "/" + ServiceName + "/SignIn"
	MethodRefresh      = "/" + ServiceName + "/Refresh"
	MethodSignOut      = "/" + ServiceName + "/SignOut"
	MethodGetUser      = "/" + ServiceName + "/GetUser"
	MethodGetProfile   = "/" + ServiceName + "/GetProfile"
	MethodCreateUser   = "/" + ServiceName + "/CreateUser"
	MethodWatchSession = "/" + ServiceName + "/WatchSession"
)

// IdentityServer is the server API of the identity service.
type IdentityServer interface {
	SignIn(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SignOut(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetProfile(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateUser(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchSession(*structpb.Struct, Identity_WatchSessionServer) error
}

// Identity_WatchSessionServer is the server side of the WatchSession stream.
type Identity_WatchSessionServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchSessionServer struct {
	grpc.ServerStream
}

func (x *watchSessionServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

type unaryCall func(IdentityServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryMethod(name string, call unaryCall) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(IdentityServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(IdentityServer), ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchSessionHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(IdentityServer).WatchSession(in, &watchSessionServer{stream})
}

// Identity_ServiceDesc is the grpc.ServiceDesc for the identity service.
var Identity_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*IdentityServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("SignIn", IdentityServer.SignIn),
		unaryMethod("Refresh", IdentityServer.Refresh),
		unaryMethod("SignOut", IdentityServer.SignOut),
		unaryMethod("GetUser", IdentityServer.GetUser),
		unaryMethod("GetProfile", IdentityServer.GetProfile),
		unaryMethod("CreateUser", IdentityServer.CreateUser),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSession",
			Handler:       watchSessionHandler,
			ServerStreams: true,
		},
	},
	Metadata: "identity/v1/identity.proto",
}

func RegisterIdentityServer(s grpc.ServiceRegistrar, srv IdentityServer) {
	s.RegisterService(&Identity_ServiceDesc, srv)
}
