// Package combatserver exposes the session registry over gRPC.
//
// The contract lives in api/proto/fieldops/combat/v1/combat.proto. It uses
// only protobuf well-known types (Struct, StringValue, Empty), so the
// descriptor below is written by hand instead of generated, and the payloads
// stay readable with any gRPC tooling.
package combatserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "fieldops.combat.v1.CombatSync"

const (
	methodStartSession = "/" + ServiceName + "/StartSession"
	methodGetStatus    = "/" + ServiceName + "/GetStatus"
	methodGetLiveState = "/" + ServiceName + "/GetLiveState"
	methodGetResult    = "/" + ServiceName + "/GetResult"
	methodGetReport    = "/" + ServiceName + "/GetReport"
	methodForceEnd     = "/" + ServiceName + "/ForceEnd"
	methodWatchSession = "/" + ServiceName + "/WatchSession"
)

// CombatSyncServer is the server API of the CombatSync service.
type CombatSyncServer interface {
	StartSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetStatus(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetLiveState(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetResult(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	GetReport(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	ForceEnd(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	WatchSession(*wrapperspb.StringValue, WatchSessionServer) error
}

// WatchSessionServer is the server side of a WatchSession stream.
type WatchSessionServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type watchSessionServer struct {
	grpc.ServerStream
}

func (s *watchSessionServer) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// Register attaches srv to s.
func Register(s grpc.ServiceRegistrar, srv CombatSyncServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// unary builds a grpc.MethodHandler for a request type Req.
func unary[Req any, Resp any](fullMethod string, call func(CombatSyncServer, context.Context, *Req) (Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CombatSyncServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CombatSyncServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchSessionHandler(srv any, stream grpc.ServerStream) error {
	in := new(wrapperspb.StringValue)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CombatSyncServer).WatchSession(in, &watchSessionServer{stream})
}

// ServiceDesc describes the CombatSync service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CombatSyncServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "StartSession", Handler: unary(methodStartSession, CombatSyncServer.StartSession)},
		{MethodName: "GetStatus", Handler: unary(methodGetStatus, CombatSyncServer.GetStatus)},
		{MethodName: "GetLiveState", Handler: unary(methodGetLiveState, CombatSyncServer.GetLiveState)},
		{MethodName: "GetResult", Handler: unary(methodGetResult, CombatSyncServer.GetResult)},
		{MethodName: "GetReport", Handler: unary(methodGetReport, CombatSyncServer.GetReport)},
		{MethodName: "ForceEnd", Handler: unary(methodForceEnd, CombatSyncServer.ForceEnd)},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSession",
			Handler:       watchSessionHandler,
			ServerStreams: true,
		},
	},
	Metadata: "api/proto/fieldops/combat/v1/combat.proto",
}
