// Package agentloop drives one operation's worth of the turn state
// machine: stream a completion, execute any requested tools, feed their
// results back, and repeat until the model stops cleanly, fails, or the
// step budget runs out. It knows nothing about event stores, sessions, or
// transports; callers observe progress through Hooks and get back a
// terminal Outcome plus the messages the turn appended.
package agentloop

import (
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// State names a position in the turn state machine. Loop.Run never
// exposes these as a type other callers branch on; they exist purely for
// Hooks.OnState to report for UI/observability purposes.
type State string

const (
	StateIdle                State = "idle"
	StateLlmStreaming        State = "llm_streaming"
	StateCollectingToolCalls State = "collecting_tool_calls"
	StateExecutingTools      State = "executing_tools"
	StateAwaitingApproval    State = "awaiting_approval"
	StateCompacting          State = "compacting"
	StateTerminal            State = "terminal"
)

// Hooks lets a caller observe a running turn without the loop knowing
// anything about event stores or broadcast channels. OnDelta fires for
// every streamed Delta so a UI can patch an in-progress message live;
// OnMessage fires once per finalized message (Assistant or Tool) that
// belongs in history; OnState fires on every state transition. Any of
// the three may be nil.
type Hooks struct {
	OnDelta   func(llm.Delta)
	OnMessage func(types.Message)
	OnState   func(State)
}

func (h Hooks) state(s State) {
	if h.OnState != nil {
		h.OnState(s)
	}
}

func (h Hooks) delta(d llm.Delta) {
	if h.OnDelta != nil {
		h.OnDelta(d)
	}
}

func (h Hooks) message(m types.Message) {
	if h.OnMessage != nil {
		h.OnMessage(m)
	}
}

// RunInput is everything one turn needs. History is the session's
// existing message log; Run appends to a copy and never mutates the
// slice it's given.
type RunInput struct {
	SessionID types.SessionID
	OpID      types.OpID
	Agent     string

	Model        string
	SystemPrompt string
	History      []types.Message
	Tools        []tool.Tool

	Workspace   workspace.Workspace
	AbortCh     <-chan struct{}
	ToolTimeout time.Duration

	MaxTokens   int
	Temperature float64

	Hooks Hooks
}

// Outcome is the terminal result of one Run call. Err is non-nil only
// when the operation ended abnormally (non-retryable stream failure,
// step budget exhausted, or cancellation); a clean stop with StopEnd or
// StopToolUse-turned-End never sets it.
type Outcome struct {
	StopReason llm.StopReason
	Usage      llm.Usage
	Err        error
}

func toolSchemas(tools []tool.Tool) []llm.ToolSchema {
	out := make([]llm.ToolSchema, len(tools))
	for i, t := range tools {
		out[i] = llm.ToolSchema{
			Name:        t.ID(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		}
	}
	return out
}
