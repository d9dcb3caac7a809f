package remote

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/BrendanGraham14/steer-sub008/internal/eventstore"
	"github.com/BrendanGraham14/steer-sub008/internal/remote/proto"
	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// Client is an appclient.AgentClient that talks to a remote Server over
// gRPC using the "steerjson" codec instead of generated stubs.
type Client struct {
	cc *grpc.ClientConn
}

// Dial connects to a remote Server's gRPC listener at addr ("host:port").
func Dial(ctx context.Context, addr string) (*Client, error) {
	cc, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(codecName)),
	)
	if err != nil {
		return nil, fmt.Errorf("remote: dial %s: %w", addr, err)
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error { return c.cc.Close() }

func (c *Client) invoke(ctx context.Context, method string, req, reply any) error {
	return c.cc.Invoke(ctx, "/"+serviceName+"/"+method, req, reply)
}

func (c *Client) CreateSession(ctx context.Context, directory string) (types.SessionID, error) {
	var resp proto.CreateSessionResponse
	if err := c.invoke(ctx, "CreateSession", &proto.CreateSessionRequest{Directory: directory}, &resp); err != nil {
		return "", err
	}
	return types.SessionID(resp.SessionID), nil
}

func (c *Client) ListSessions(ctx context.Context) ([]eventstore.SessionMeta, error) {
	var resp proto.ListSessionsResponse
	if err := c.invoke(ctx, "ListSessions", &proto.ListSessionsRequest{}, &resp); err != nil {
		return nil, err
	}
	out := make([]eventstore.SessionMeta, len(resp.Sessions))
	for i, m := range resp.Sessions {
		out[i] = eventstore.SessionMeta{
			ID: types.SessionID(m.ID), CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt,
			Title: m.Title, LastModel: m.LastModel, MessageCount: int(m.MessageCount),
		}
	}
	return out, nil
}

func (c *Client) DeleteSession(ctx context.Context, id types.SessionID) error {
	var resp proto.DeleteSessionResponse
	return c.invoke(ctx, "DeleteSession", &proto.DeleteSessionRequest{SessionID: string(id)}, &resp)
}

func (c *Client) Snapshot(ctx context.Context, id types.SessionID, directory string) ([]types.Message, []string, string, string, string, error) {
	var resp proto.SnapshotResponse
	req := &proto.SnapshotRequest{SessionID: string(id), Directory: directory}
	if err := c.invoke(ctx, "Snapshot", req, &resp); err != nil {
		return nil, nil, "", "", "", err
	}
	return resp.History, resp.ApprovedTools, resp.Model, resp.Title, resp.ShareToken, nil
}

func (c *Client) SendCommand(ctx context.Context, id types.SessionID, directory string, cmd session.Command) error {
	var resp proto.SendCommandResponse
	req := commandToProto(id, directory, cmd)
	if err := c.invoke(ctx, "SendCommand", req, &resp); err != nil {
		return err
	}
	if resp.Error != "" {
		return fmt.Errorf("%s", resp.Error)
	}
	return nil
}

func (c *Client) Subscribe(ctx context.Context, id types.SessionID, directory string) (<-chan session.ClientEvent, func(), error) {
	streamCtx, cancel := context.WithCancel(ctx)
	stream, err := c.cc.NewStream(streamCtx, &serviceDesc.Streams[0], "/"+serviceName+"/Subscribe")
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if err := stream.SendMsg(&proto.SubscribeRequest{SessionID: string(id), Directory: directory}); err != nil {
		cancel()
		return nil, nil, err
	}
	if err := stream.CloseSend(); err != nil {
		cancel()
		return nil, nil, err
	}

	out := make(chan session.ClientEvent, 64)
	go func() {
		defer close(out)
		for {
			var ev proto.ClientEvent
			if err := stream.RecvMsg(&ev); err != nil {
				return
			}
			select {
			case out <- clientEventFromProto(&ev):
			case <-streamCtx.Done():
				return
			}
		}
	}()

	return out, cancel, nil
}
