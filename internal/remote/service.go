package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/BrendanGraham14/steer-sub008/internal/appclient"
	"github.com/BrendanGraham14/steer-sub008/internal/remote/proto"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const serviceName = "steer.v1.Agent"

// agentServer implements the Agent service's handler methods by
// delegating to an appclient.AgentClient. It has no session logic of
// its own; it only translates between proto.* wire messages and the
// domain types AgentClient moves.
type agentServer struct {
	client appclient.AgentClient
}

func (s *agentServer) createSession(ctx context.Context, req *proto.CreateSessionRequest) (*proto.CreateSessionResponse, error) {
	id, err := s.client.CreateSession(ctx, req.Directory)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "create session: %v", err)
	}
	return &proto.CreateSessionResponse{SessionID: string(id)}, nil
}

func (s *agentServer) listSessions(ctx context.Context, _ *proto.ListSessionsRequest) (*proto.ListSessionsResponse, error) {
	metas, err := s.client.ListSessions(ctx)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list sessions: %v", err)
	}
	out := make([]proto.SessionMeta, len(metas))
	for i, m := range metas {
		out[i] = sessionMetaToProto(m)
	}
	return &proto.ListSessionsResponse{Sessions: out}, nil
}

func (s *agentServer) deleteSession(ctx context.Context, req *proto.DeleteSessionRequest) (*proto.DeleteSessionResponse, error) {
	if err := s.client.DeleteSession(ctx, types.SessionID(req.SessionID)); err != nil {
		return nil, status.Errorf(codes.Internal, "delete session: %v", err)
	}
	return &proto.DeleteSessionResponse{}, nil
}

func (s *agentServer) snapshot(ctx context.Context, req *proto.SnapshotRequest) (*proto.SnapshotResponse, error) {
	history, approved, model, title, shareToken, err := s.client.Snapshot(ctx, types.SessionID(req.SessionID), req.Directory)
	if err != nil {
		return nil, status.Errorf(codes.NotFound, "snapshot: %v", err)
	}
	return &proto.SnapshotResponse{History: history, ApprovedTools: approved, Model: model, Title: title, ShareToken: shareToken}, nil
}

func (s *agentServer) sendCommand(ctx context.Context, req *proto.SendCommandRequest) (*proto.SendCommandResponse, error) {
	cmd := commandFromProto(req)
	if err := s.client.SendCommand(ctx, types.SessionID(req.SessionID), req.Directory, cmd); err != nil {
		return &proto.SendCommandResponse{Error: err.Error()}, nil
	}
	return &proto.SendCommandResponse{}, nil
}

func (s *agentServer) subscribe(req *proto.SubscribeRequest, stream grpc.ServerStream) error {
	ch, unsub, err := s.client.Subscribe(stream.Context(), types.SessionID(req.SessionID), req.Directory)
	if err != nil {
		return status.Errorf(codes.NotFound, "subscribe: %v", err)
	}
	defer unsub()

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(clientEventToProto(ev)); err != nil {
				return err
			}
		}
	}
}

// serviceDesc is the hand-written equivalent of what protoc-gen-go-grpc
// would emit from steer.proto's "Agent" service: one MethodDesc per
// unary RPC and one StreamDesc for the single server-streaming RPC.
var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: createSessionHandler},
		{MethodName: "ListSessions", Handler: listSessionsHandler},
		{MethodName: "DeleteSession", Handler: deleteSessionHandler},
		{MethodName: "Snapshot", Handler: snapshotHandler},
		{MethodName: "SendCommand", Handler: sendCommandHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Subscribe", Handler: subscribeHandler, ServerStreams: true},
	},
	Metadata: "steer.proto",
}

func createSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(proto.CreateSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(*agentServer)
	if interceptor == nil {
		return s.createSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + serviceName + "/CreateSession"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.createSession(ctx, req.(*proto.CreateSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func listSessionsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(proto.ListSessionsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(*agentServer)
	if interceptor == nil {
		return s.listSessions(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + serviceName + "/ListSessions"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.listSessions(ctx, req.(*proto.ListSessionsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func deleteSessionHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(proto.DeleteSessionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(*agentServer)
	if interceptor == nil {
		return s.deleteSession(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + serviceName + "/DeleteSession"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.deleteSession(ctx, req.(*proto.DeleteSessionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(proto.SnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(*agentServer)
	if interceptor == nil {
		return s.snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + serviceName + "/Snapshot"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.snapshot(ctx, req.(*proto.SnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sendCommandHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(proto.SendCommandRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	s := srv.(*agentServer)
	if interceptor == nil {
		return s.sendCommand(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: s, FullMethod: "/" + serviceName + "/SendCommand"}
	handler := func(ctx context.Context, req any) (any, error) {
		return s.sendCommand(ctx, req.(*proto.SendCommandRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func subscribeHandler(srv any, stream grpc.ServerStream) error {
	in := new(proto.SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(*agentServer).subscribe(in, stream)
}
