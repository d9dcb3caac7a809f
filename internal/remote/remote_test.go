package remote

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"

	"github.com/BrendanGraham14/steer-sub008/internal/appclient"
	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/internal/eventstore"
	"github.com/BrendanGraham14/steer-sub008/internal/executor"
	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/internal/mcp"
	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

type stubClient struct{ id, reply string }

func (c *stubClient) ID() string            { return c.id }
func (c *stubClient) Name() string          { return c.id }
func (c *stubClient) Models() []types.Model { return []types.Model{{ID: "m", ProviderID: c.id}} }
func (c *stubClient) Stream(ctx context.Context, req llm.Request) (<-chan llm.Delta, func() llm.Outcome) {
	out := make(chan llm.Delta, 1)
	out <- llm.Delta{Kind: llm.DeltaTextChunk, Text: c.reply}
	close(out)
	return out, func() llm.Outcome { return llm.Outcome{Kind: llm.OutcomeStop, StopReason: llm.StopEnd} }
}

func newTestLocalClient(t *testing.T) appclient.AgentClient {
	t.Helper()
	store, err := eventstore.Open(context.Background(), t.TempDir()+"/events.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	reg := tool.NewRegistry()
	resolver := tool.NewResolver(reg)
	approvals := approval.NewCoordinator()
	exec := executor.New(resolver, tool.CapWorkspace, approvals)
	mcpMgr := mcp.NewSessionManager(resolver, nil)
	llmReg := llm.NewRegistry(&types.Config{})
	llmReg.Register(&stubClient{id: "stub", reply: "hello from remote"})

	deps := session.ActorDeps{
		Store: store, Resolver: resolver, Executor: exec,
		Approvals: approvals, McpMgr: mcpMgr, LLM: llmReg, Caps: tool.CapWorkspace,
	}
	wsFac := func(dir string) (workspace.Workspace, error) { return workspace.NewLocal(dir), nil }
	mgr := session.NewManager(deps, wsFac, session.ManagerConfig{})
	return appclient.NewLocal(mgr)
}

// startTestServer boots a bare grpc.Server (no HTTP surface) on an
// ephemeral loopback port wired to a fresh in-process appclient.Local.
func startTestServer(t *testing.T) (addr string, client appclient.AgentClient) {
	t.Helper()
	client = newTestLocalClient(t)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	grpcSrv := grpc.NewServer()
	grpcSrv.RegisterService(&serviceDesc, &agentServer{client: client})

	go grpcSrv.Serve(lis)
	t.Cleanup(grpcSrv.Stop)

	return lis.Addr().String(), client
}

func TestRemote_CreateSnapshotRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer rc.Close()

	id, err := rc.CreateSession(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	sub, unsub, err := rc.Subscribe(ctx, id, "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	err = rc.SendCommand(ctx, id, "", session.Command{
		Kind:    session.CmdSendUserMessage,
		Content: []types.UserBlock{{Kind: types.UserBlockText, Text: "hi"}},
	})
	if err != nil {
		t.Fatalf("send command: %v", err)
	}

	deadline := time.After(3 * time.Second)
waitLoop:
	for {
		select {
		case ev := <-sub:
			if ev.Kind == session.ClientEventPersisted && ev.Event != nil && ev.Event.Kind == types.EventOperationCompleted {
				break waitLoop
			}
		case <-deadline:
			t.Fatal("timed out waiting for operation completion over the wire")
		}
	}

	history, _, _, _, _, err := rc.Snapshot(ctx, id, "")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(history) < 2 {
		t.Fatalf("expected user+assistant messages round-tripped over gRPC, got %d", len(history))
	}
	if history[len(history)-1].TextContent() != "hello from remote" {
		t.Fatalf("unexpected assistant reply: %q", history[len(history)-1].TextContent())
	}
}

func TestRemote_ListAndDeleteSession(t *testing.T) {
	addr, _ := startTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rc, err := Dial(ctx, addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer rc.Close()

	id, err := rc.CreateSession(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}

	metas, err := rc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(metas) != 1 || metas[0].ID != id {
		t.Fatalf("unexpected session list: %+v", metas)
	}

	if err := rc.DeleteSession(ctx, id); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	metas, err = rc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions after delete: %v", err)
	}
	if len(metas) != 0 {
		t.Fatalf("expected no sessions after delete, got %+v", metas)
	}
}
