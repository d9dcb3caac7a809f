package agentloop

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/BrendanGraham14/steer-sub008/internal/executor"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// DefaultMaxToolConcurrency bounds how many tool calls from one
// Assistant message run at once when a Loop doesn't override it.
const DefaultMaxToolConcurrency = 8

// defaultToolTimeout is the per-call deadline applied when RunInput
// doesn't set one, per the "~5 minutes" default call timeout.
const defaultToolTimeout = 5 * time.Minute

// ToolExecutor runs one resolved tool call to a typed result, never
// returning a Go error for a tool-level failure. executor.Executor
// satisfies this directly; tests substitute a fake.
type ToolExecutor interface {
	Execute(ctx context.Context, call executor.ToolCall, execCtx executor.ExecutionContext) *types.ToolResult
}

func (l *Loop) maxToolConcurrency() int64 {
	if l.MaxToolConcurrency > 0 {
		return l.MaxToolConcurrency
	}
	return DefaultMaxToolConcurrency
}

// executeTools runs every call concurrently, bounded by
// maxToolConcurrency, and returns one Tool message per call. Calls may
// finish in any order, but the returned slice is always in the order the
// Assistant's tool-call blocks requested them, per the loop's ordering
// rule: history must stay stable across runs regardless of completion
// timing. A call left without a result because its goroutine never ran
// (context cancelled before its semaphore acquire) is reported as a
// cancelled ToolResult rather than silently dropped.
func (l *Loop) executeTools(ctx context.Context, in RunInput, calls []types.ToolCall) []types.Message {
	results := make([]*types.ToolResult, len(calls))
	sem := semaphore.NewWeighted(l.maxToolConcurrency())
	g, gctx := errgroup.WithContext(ctx)

	timeout := in.ToolTimeout
	if timeout <= 0 {
		timeout = defaultToolTimeout
	}

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			execCtx := executor.ExecutionContext{
				SessionID: in.SessionID,
				OpID:      in.OpID,
				Agent:     in.Agent,
				Workspace: in.Workspace,
				AbortCh:   in.AbortCh,
				Timeout:   timeout,
			}
			results[i] = l.Executor.Execute(gctx, executor.ToolCall{
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Parameters,
			}, execCtx)
			return nil
		})
	}
	_ = g.Wait()

	msgs := make([]types.Message, len(calls))
	for i, call := range calls {
		res := results[i]
		if res == nil {
			res = &types.ToolResult{
				Kind: types.ToolResultError,
				Error: &types.ErrorResult{
					Kind:    types.ErrorKindCancelled,
					Message: "operation cancelled before this tool call ran",
				},
			}
		}
		msgs[i] = types.Message{
			ID:        types.NewMessageID(types.RoleTool),
			Role:      types.RoleTool,
			Timestamp: time.Now().Unix(),
			Tool:      &types.ToolMessage{ToolUseID: call.ID, Result: *res},
		}
	}
	return msgs
}
