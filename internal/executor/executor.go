// Package executor runs resolved tool calls through the five-step
// protocol: resolve, gate on approval, execute under a deadline, wrap
// failures into a typed result, publish completion.
package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/internal/event"
	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// ToolCall is one model-requested tool invocation awaiting execution.
type ToolCall struct {
	ID    types.ToolCallID
	Name  string
	Input json.RawMessage
}

// ExecutionContext carries everything Execute needs beyond the call
// itself.
type ExecutionContext struct {
	SessionID  types.SessionID
	OpID       types.OpID
	Agent      string
	Workspace  workspace.Workspace
	AbortCh    <-chan struct{}
	Timeout    time.Duration
	OnMetadata func(title string, meta map[string]any)
}

// approvalRequired lists the built-in tools whose effects are irreversible
// or externally visible enough to gate behind an explicit approval.
var approvalRequired = map[string]bool{
	"bash":  true,
	"write": true,
	"edit":  true,
}

// RequiresApproval reports whether toolName needs a granted approval
// before it may run.
func RequiresApproval(toolName string) bool {
	return approvalRequired[toolName]
}

// mutatesWorkspace lists the built-in tools that can change facts an
// Environment snapshot caches (working tree, git branch): write and edit
// change files directly, bash can run anything including a checkout.
// A successful call invalidates the workspace's cached Environment so the
// next read picks up the change instead of serving a stale TTL hit.
var mutatesWorkspace = map[string]bool{
	"bash":  true,
	"write": true,
	"edit":  true,
}

// Executor runs tool calls against a session-scoped tool.Resolver, gating
// approval-required tools through an approval.Coordinator and flagging
// doom loops as an additional approval trigger.
type Executor struct {
	resolver  *tool.Resolver
	caps      tool.Capability
	approvals *approval.Coordinator
	doomLoop  *DoomLoopDetector
}

// New creates an Executor. caps is the capability set this backend grants
// tools; Execute does not consult it. Capability filtering happens in the
// resolver's Resolve, while Execute looks the call up by id through Get,
// which does not re-filter by capability.
func New(resolver *tool.Resolver, caps tool.Capability, approvals *approval.Coordinator) *Executor {
	return &Executor{
		resolver:  resolver,
		caps:      caps,
		approvals: approvals,
		doomLoop:  NewDoomLoopDetector(),
	}
}

// Execute runs call to completion, returning a fully-typed result. It never
// returns a Go error: every failure, including context cancellation, timeout,
// denial, and panics recovered from the underlying tool, is folded into the
// returned ToolResult's Error variant so the caller can always append it to
// history as a Tool message.
func (e *Executor) Execute(ctx context.Context, call ToolCall, execCtx ExecutionContext) *types.ToolResult {
	t, ok := e.resolver.Get(execCtx.SessionID, call.Name)
	if !ok {
		return newErrorResult(types.ErrorKindUnknownTool, fmt.Sprintf("unknown tool: %s", call.Name), false)
	}

	if res := e.gate(ctx, call, execCtx); res != nil {
		return res
	}

	result := e.runTool(ctx, t, call, execCtx)

	if result.Error == nil && mutatesWorkspace[call.Name] && execCtx.Workspace != nil {
		_ = execCtx.Workspace.InvalidateEnvironmentCache(ctx)
	}

	event.PublishSync(event.Event{
		Type: event.ToolFinished,
		Data: map[string]any{
			"sessionId": execCtx.SessionID,
			"opId":      execCtx.OpID,
			"callId":    call.ID,
			"tool":      call.Name,
			"result":    result,
		},
	})

	return result
}

// gate runs step 2 of the protocol, the approval check (with a detected
// doom loop as an extra trigger), returning a non-nil result if execution
// must stop here.
func (e *Executor) gate(ctx context.Context, call ToolCall, execCtx ExecutionContext) *types.ToolResult {
	needsApproval := RequiresApproval(call.Name) && !e.approvals.IsApproved(execCtx.SessionID, call.Name)
	isDoomLoop := e.doomLoop.Check(execCtx.SessionID, call.Name, call.Input)

	if !needsApproval && !isDoomLoop {
		return nil
	}

	title := fmt.Sprintf("Allow %s?", call.Name)
	if isDoomLoop && !needsApproval {
		title = fmt.Sprintf("Allow repeated %s call?", call.Name)
	}

	dec, err := e.approvals.Ask(ctx, approval.Request{
		SessionID: execCtx.SessionID,
		CallID:    call.ID,
		ToolName:  call.Name,
		Title:     title,
	})
	if err != nil {
		return newErrorResult(types.ErrorKindCancelled, "operation cancelled while awaiting approval", false)
	}
	if dec.Granted && dec.Scope == approval.ScopeSession {
		e.doomLoop.Reset(execCtx.SessionID)
	}
	if !dec.Granted {
		return newErrorResult(types.ErrorKindDeniedByUser, "denied by user", false)
	}
	return nil
}

// runTool performs steps 3-4: execute against the resolved backend under the
// cancellation token and timeout, converting any failure into a typed
// error result rather than letting it propagate.
func (e *Executor) runTool(ctx context.Context, t tool.Tool, call ToolCall, execCtx ExecutionContext) (res *types.ToolResult) {
	defer func() {
		if r := recover(); r != nil {
			res = newErrorResult(types.ErrorKindInternal, fmt.Sprintf("tool panicked: %v", r), false)
		}
	}()

	runCtx := ctx
	if execCtx.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, execCtx.Timeout)
		defer cancel()
	}

	toolCtx := &tool.Context{
		SessionID:  execCtx.SessionID,
		OpID:       execCtx.OpID,
		ToolCallID: call.ID,
		Agent:      execCtx.Agent,
		Workspace:  execCtx.Workspace,
		AbortCh:    execCtx.AbortCh,
		OnMetadata: execCtx.OnMetadata,
	}

	result, err := t.Execute(runCtx, call.Input, toolCtx)
	if err == nil {
		return &result.Value
	}

	if runCtx.Err() == context.DeadlineExceeded {
		return newErrorResult(types.ErrorKindTimeout, "tool execution timed out", true)
	}
	if ctx.Err() != nil {
		return newErrorResult(types.ErrorKindCancelled, "operation cancelled", false)
	}
	return newErrorResult(types.ErrorKindInternal, err.Error(), false)
}

func newErrorResult(kind types.ErrorKind, message string, retryable bool) *types.ToolResult {
	return &types.ToolResult{
		Kind:  types.ToolResultError,
		Error: &types.ErrorResult{Kind: kind, Message: message, Retryable: retryable},
	}
}
