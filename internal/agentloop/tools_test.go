package agentloop

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/executor"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// orderRecordingExecutor finishes calls in reverse-request order (the
// last call submitted returns first) to prove executeTools re-assembles
// results in request order regardless of completion order.
type orderRecordingExecutor struct {
	mu    sync.Mutex
	calls []string
}

func (e *orderRecordingExecutor) Execute(ctx context.Context, call executor.ToolCall, execCtx executor.ExecutionContext) *types.ToolResult {
	e.mu.Lock()
	e.calls = append(e.calls, call.Name)
	e.mu.Unlock()

	// Invert the delay so later-indexed calls ("c") finish before the
	// earlier ones ("a"), to exercise out-of-order completion.
	switch call.Name {
	case "a":
		time.Sleep(15 * time.Millisecond)
	case "b":
		time.Sleep(8 * time.Millisecond)
	}
	return &types.ToolResult{Kind: types.ToolResultBash, Bash: &types.BashResult{Command: call.Name}}
}

func TestExecuteTools_PreservesRequestOrder(t *testing.T) {
	calls := []types.ToolCall{
		{ID: "call_a", Name: "a", Parameters: json.RawMessage(`{}`)},
		{ID: "call_b", Name: "b", Parameters: json.RawMessage(`{}`)},
		{ID: "call_c", Name: "c", Parameters: json.RawMessage(`{}`)},
	}
	loop := &Loop{Executor: &orderRecordingExecutor{}}

	msgs := loop.executeTools(context.Background(), RunInput{}, calls)
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, call := range calls {
		if msgs[i].Tool.ToolUseID != call.ID {
			t.Fatalf("message %d: expected tool use id %q, got %q", i, call.ID, msgs[i].Tool.ToolUseID)
		}
		if msgs[i].Tool.Result.Bash.Command != call.Name {
			t.Fatalf("message %d: expected result for %q, got %q", i, call.Name, msgs[i].Tool.Result.Bash.Command)
		}
	}
}

// boundedExecutor tracks the maximum number of calls in flight at once.
type boundedExecutor struct {
	mu      sync.Mutex
	inFlight int
	maxSeen  int
}

func (e *boundedExecutor) Execute(ctx context.Context, call executor.ToolCall, execCtx executor.ExecutionContext) *types.ToolResult {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.maxSeen {
		e.maxSeen = e.inFlight
	}
	e.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	e.mu.Lock()
	e.inFlight--
	e.mu.Unlock()
	return &types.ToolResult{Kind: types.ToolResultBash, Bash: &types.BashResult{}}
}

func TestExecuteTools_BoundsConcurrency(t *testing.T) {
	exec := &boundedExecutor{}
	loop := &Loop{Executor: exec, MaxToolConcurrency: 2}

	var calls []types.ToolCall
	for i := 0; i < 6; i++ {
		calls = append(calls, types.ToolCall{ID: types.NewToolCallID(), Name: "x", Parameters: json.RawMessage(`{}`)})
	}
	loop.executeTools(context.Background(), RunInput{}, calls)

	if exec.maxSeen > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", exec.maxSeen)
	}
}

func TestExecuteTools_CancelledBeforeRunYieldsCancelledResult(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	exec := &boundedExecutor{}
	loop := &Loop{Executor: exec, MaxToolConcurrency: 1}
	calls := []types.ToolCall{
		{ID: "call_a", Name: "a", Parameters: json.RawMessage(`{}`)},
	}
	msgs := loop.executeTools(ctx, RunInput{}, calls)
	if len(msgs) != 1 || !msgs[0].Tool.Result.IsError() {
		t.Fatalf("expected a cancelled error result, got %+v", msgs)
	}
	if msgs[0].Tool.Result.Error.Kind != types.ErrorKindCancelled {
		t.Fatalf("expected ErrorKindCancelled, got %+v", msgs[0].Tool.Result.Error)
	}
}
