package executor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

type stubTool struct {
	id      string
	caps    tool.Capability
	result  *tool.Result
	err     error
	panics  bool
	delay   time.Duration
	calls   int
}

func (s *stubTool) ID() string                  { return s.id }
func (s *stubTool) Description() string         { return "stub" }
func (s *stubTool) Parameters() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Capabilities() tool.Capability { return s.caps }
func (s *stubTool) EinoTool() einotool.InvokableTool { return nil }

func (s *stubTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.panics {
		panic("boom")
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func newResolverWith(t *testing.T, tools ...tool.Tool) *tool.Resolver {
	t.Helper()
	reg := tool.NewRegistry()
	for _, tl := range tools {
		reg.Register(tl)
	}
	return tool.NewResolver(reg)
}

func TestExecutor_UnknownTool(t *testing.T) {
	resolver := newResolverWith(t)
	e := New(resolver, 0, approval.NewCoordinator())

	res := e.Execute(context.Background(), ToolCall{ID: "c1", Name: "nope"}, ExecutionContext{SessionID: "s1"})
	if res.Kind != types.ToolResultError || res.Error.Kind != types.ErrorKindUnknownTool {
		t.Fatalf("expected unknown tool error, got %+v", res)
	}
}

func TestExecutor_SuccessNoApprovalNeeded(t *testing.T) {
	stub := &stubTool{id: "read", result: &tool.Result{Value: types.ToolResult{Kind: types.ToolResultFileContent}}}
	resolver := newResolverWith(t, stub)
	e := New(resolver, 0, approval.NewCoordinator())

	res := e.Execute(context.Background(), ToolCall{ID: "c1", Name: "read", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1"})
	if res.Kind != types.ToolResultFileContent {
		t.Fatalf("expected passthrough success, got %+v", res)
	}
	if stub.calls != 1 {
		t.Fatalf("expected tool to be called once, got %d", stub.calls)
	}
}

func TestExecutor_RequiresApprovalGranted(t *testing.T) {
	stub := &stubTool{id: "bash", result: &tool.Result{Value: types.ToolResult{Kind: types.ToolResultBash}}}
	resolver := newResolverWith(t, stub)
	coord := approval.NewCoordinator()
	e := New(resolver, 0, coord)

	done := make(chan *types.ToolResult)
	go func() {
		done <- e.Execute(context.Background(), ToolCall{ID: "c1", Name: "bash", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1"})
	}()

	time.Sleep(10 * time.Millisecond)
	if !coord.Respond("s1", "c1", approval.Decision{Granted: true, Scope: approval.ScopeOnce}) {
		t.Fatal("expected a pending approval request")
	}

	res := <-done
	if res.Kind != types.ToolResultBash {
		t.Fatalf("expected bash success after grant, got %+v", res)
	}
}

func TestExecutor_RequiresApprovalDenied(t *testing.T) {
	stub := &stubTool{id: "bash", result: &tool.Result{Value: types.ToolResult{Kind: types.ToolResultBash}}}
	resolver := newResolverWith(t, stub)
	coord := approval.NewCoordinator()
	e := New(resolver, 0, coord)

	done := make(chan *types.ToolResult)
	go func() {
		done <- e.Execute(context.Background(), ToolCall{ID: "c1", Name: "bash", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1"})
	}()

	time.Sleep(10 * time.Millisecond)
	coord.Respond("s1", "c1", approval.Decision{Granted: false})

	res := <-done
	if res.Kind != types.ToolResultError || res.Error.Kind != types.ErrorKindDeniedByUser {
		t.Fatalf("expected denied error, got %+v", res)
	}
	if stub.calls != 0 {
		t.Fatal("tool should never have been executed after denial")
	}
}

func TestExecutor_SessionApprovalSkipsFuturePrompts(t *testing.T) {
	stub := &stubTool{id: "bash", result: &tool.Result{Value: types.ToolResult{Kind: types.ToolResultBash}}}
	resolver := newResolverWith(t, stub)
	coord := approval.NewCoordinator()
	e := New(resolver, 0, coord)

	done := make(chan *types.ToolResult)
	go func() {
		done <- e.Execute(context.Background(), ToolCall{ID: "c1", Name: "bash", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1"})
	}()
	time.Sleep(10 * time.Millisecond)
	coord.Respond("s1", "c1", approval.Decision{Granted: true, Scope: approval.ScopeSession})
	<-done

	// Second call for the same tool should proceed without any Respond call.
	res := e.Execute(context.Background(), ToolCall{ID: "c2", Name: "bash", Input: json.RawMessage(`{"x":1}`)}, ExecutionContext{SessionID: "s1"})
	if res.Kind != types.ToolResultBash {
		t.Fatalf("expected session-approved call to proceed without prompting, got %+v", res)
	}
}

func TestExecutor_DoomLoop(t *testing.T) {
	stub := &stubTool{id: "read", result: &tool.Result{Value: types.ToolResult{Kind: types.ToolResultFileContent}}}
	resolver := newResolverWith(t, stub)
	coord := approval.NewCoordinator()
	e := New(resolver, 0, coord)

	input := json.RawMessage(`{"path":"a.txt"}`)
	for i := 0; i < DoomLoopThreshold-1; i++ {
		res := e.Execute(context.Background(), ToolCall{ID: types.ToolCallID("c" + string(rune('0'+i))), Name: "read", Input: input}, ExecutionContext{SessionID: "s1"})
		if res.Kind != types.ToolResultFileContent {
			t.Fatalf("call %d should have succeeded without a prompt, got %+v", i, res)
		}
	}

	done := make(chan *types.ToolResult)
	go func() {
		done <- e.Execute(context.Background(), ToolCall{ID: "loop-call", Name: "read", Input: input}, ExecutionContext{SessionID: "s1"})
	}()
	time.Sleep(10 * time.Millisecond)
	if !coord.Respond("s1", "loop-call", approval.Decision{Granted: true, Scope: approval.ScopeOnce}) {
		t.Fatal("expected the doom-loop-threshold call to request approval")
	}
	res := <-done
	if res.Kind != types.ToolResultFileContent {
		t.Fatalf("expected success after granting the repeated call, got %+v", res)
	}
}

func TestExecutor_ToolError(t *testing.T) {
	stub := &stubTool{id: "read", err: errors.New("disk exploded")}
	resolver := newResolverWith(t, stub)
	e := New(resolver, 0, approval.NewCoordinator())

	res := e.Execute(context.Background(), ToolCall{ID: "c1", Name: "read", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1"})
	if res.Kind != types.ToolResultError || res.Error.Kind != types.ErrorKindInternal {
		t.Fatalf("expected internal error, got %+v", res)
	}
}

func TestExecutor_ToolPanic(t *testing.T) {
	stub := &stubTool{id: "read", panics: true}
	resolver := newResolverWith(t, stub)
	e := New(resolver, 0, approval.NewCoordinator())

	res := e.Execute(context.Background(), ToolCall{ID: "c1", Name: "read", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1"})
	if res.Kind != types.ToolResultError || res.Error.Kind != types.ErrorKindInternal {
		t.Fatalf("expected recovered panic to become an internal error, got %+v", res)
	}
}

func TestExecutor_Timeout(t *testing.T) {
	stub := &stubTool{id: "slow", delay: 50 * time.Millisecond}
	resolver := newResolverWith(t, stub)
	e := New(resolver, 0, approval.NewCoordinator())

	res := e.Execute(context.Background(), ToolCall{ID: "c1", Name: "slow", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1", Timeout: 5 * time.Millisecond})
	if res.Kind != types.ToolResultError || res.Error.Kind != types.ErrorKindTimeout {
		t.Fatalf("expected timeout error, got %+v", res)
	}
	if !res.Error.Retryable {
		t.Fatal("timeouts should be marked retryable")
	}
}

func TestExecutor_ContextCancelled(t *testing.T) {
	stub := &stubTool{id: "slow", delay: 50 * time.Millisecond}
	resolver := newResolverWith(t, stub)
	e := New(resolver, 0, approval.NewCoordinator())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	res := e.Execute(ctx, ToolCall{ID: "c1", Name: "slow", Input: json.RawMessage(`{}`)}, ExecutionContext{SessionID: "s1"})
	if res.Kind != types.ToolResultError || res.Error.Kind != types.ErrorKindCancelled {
		t.Fatalf("expected cancelled error, got %+v", res)
	}
}

func TestRequiresApproval(t *testing.T) {
	for _, name := range []string{"bash", "write", "edit"} {
		if !RequiresApproval(name) {
			t.Errorf("%s should require approval", name)
		}
	}
	for _, name := range []string{"read", "grep", "glob"} {
		if RequiresApproval(name) {
			t.Errorf("%s should not require approval", name)
		}
	}
}
