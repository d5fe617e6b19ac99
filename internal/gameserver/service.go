package gameserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wayfarer.v1.ActionService"

// Full method names.
const (
	MethodExecuteAction       = "/" + ServiceName + "/ExecuteAction"
	MethodGetAvailableActions = "/" + ServiceName + "/GetAvailableActions"
	MethodResolvePlayer       = "/" + ServiceName + "/ResolvePlayer"
	MethodCreateCharacter     = "/" + ServiceName + "/CreateCharacter"
	MethodGetCharacter        = "/" + ServiceName + "/GetCharacter"
)

// ActionServiceServer is the server API for ActionService. Every message is a
// google.protobuf.Struct whose fields follow the JSON shape of the request and
// view types in this package.
type ActionServiceServer interface {
	ExecuteAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetAvailableActions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResolvePlayer(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CreateCharacter(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetCharacter(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// RegisterActionServiceServer registers srv on s.
func RegisterActionServiceServer(s grpc.ServiceRegistrar, srv ActionServiceServer) {
	s.RegisterService(&ActionServiceDesc, srv)
}

type unaryMethod func(srv ActionServiceServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ActionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ActionServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ActionServiceDesc describes ActionService for grpc.Server.RegisterService.
var ActionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ActionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ExecuteAction",
			Handler:    unaryHandler(MethodExecuteAction, ActionServiceServer.ExecuteAction),
		},
		{
			MethodName: "GetAvailableActions",
			Handler:    unaryHandler(MethodGetAvailableActions, ActionServiceServer.GetAvailableActions),
		},
		{
			MethodName: "ResolvePlayer",
			Handler:    unaryHandler(MethodResolvePlayer, ActionServiceServer.ResolvePlayer),
		},
		{
			MethodName: "CreateCharacter",
			Handler:    unaryHandler(MethodCreateCharacter, ActionServiceServer.CreateCharacter),
		},
		{
			MethodName: "GetCharacter",
			Handler:    unaryHandler(MethodGetCharacter, ActionServiceServer.GetCharacter),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "wayfarer/v1/action.proto",
}
