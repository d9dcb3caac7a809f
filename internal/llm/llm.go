// Package llm abstracts LLM providers behind a single streaming contract,
// so the agent loop never imports a provider SDK directly. Every provider
// is an eino ToolCallingChatModel under the hood; Client normalizes their
// streamed chunks into a common Delta sequence and a terminal Outcome.
package llm

import (
	"context"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// Client streams one completion from a provider-backed model.
type Client interface {
	// ID is the provider identifier ("anthropic", "openai", "ark", ...).
	ID() string

	// Name is the human-readable provider name.
	Name() string

	// Models lists the models this client can serve.
	Models() []types.Model

	// Stream starts a completion. The returned channel carries Deltas in
	// order and is closed when the stream ends, whether by completion,
	// error, or cancellation via ctx. The returned function blocks until
	// the channel is closed and then returns the terminal Outcome; it may
	// be called any number of times after the channel closes.
	Stream(ctx context.Context, req Request) (<-chan Delta, func() Outcome)
}

// ToolSchema describes one tool available to the model for this
// completion, in the JSON Schema shape every internal/tool.Tool exposes
// via Parameters().
type ToolSchema struct {
	Name        string
	Description string
	Parameters  []byte // JSON Schema, object type
}

// Request is everything a Client needs to start a completion.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []types.Message
	Tools        []ToolSchema
	MaxTokens    int
	Temperature  float64
}

// DeltaKind discriminates the Delta tagged union.
type DeltaKind string

const (
	DeltaTextChunk        DeltaKind = "text_chunk"
	DeltaToolCallFragment DeltaKind = "tool_call_fragment"
	DeltaThought          DeltaKind = "thought"
	DeltaUsageUpdate      DeltaKind = "usage_update"
)

// Delta is one incremental unit of a streaming completion.
type Delta struct {
	Kind DeltaKind

	Text             string            // DeltaTextChunk
	ToolCallFragment *ToolCallFragment // DeltaToolCallFragment
	Thought          *ThoughtContent   // DeltaThought
	Usage            *Usage            // DeltaUsageUpdate
}

// ToolCallFragment is one chunk of a tool call under construction. Name is
// only populated on the fragment that introduces CallID; every later
// fragment for the same CallID carries the next slice of the arguments
// JSON, to be concatenated in order.
type ToolCallFragment struct {
	CallID          types.ToolCallID
	Name            string
	ParamsJSONDelta string
}

// ThoughtContent carries one chunk of extended-thinking content. Text
// accumulates across chunks for plain/signed thoughts; a provider that
// returns thinking as a single opaque redacted blob sets Opaque instead.
type ThoughtContent struct {
	Text      string
	Signature string
	Opaque    string
}

// Usage reports token accounting. ContextWindow is the model's total
// context size, when the provider surfaces it, so callers can compute
// remaining headroom without a second lookup.
type Usage struct {
	InputTokens      int
	OutputTokens     int
	CacheReadTokens  int
	CacheWriteTokens int
	ContextWindow    int
}

// StopReason is why a stream ended cleanly (Outcome.Kind == OutcomeStop).
type StopReason string

const (
	StopEnd     StopReason = "end"
	StopToolUse StopReason = "tool_use"
	StopLength  StopReason = "length"
)

// OutcomeKind discriminates the Outcome tagged union.
type OutcomeKind string

const (
	OutcomeStop  OutcomeKind = "stop"
	OutcomeError OutcomeKind = "error"
)

// Outcome is the terminal result of a stream: exactly one of StopReason
// (Kind == OutcomeStop) or Error (Kind == OutcomeError) is meaningful.
type Outcome struct {
	Kind       OutcomeKind
	StopReason StopReason
	Error      *StreamError
	Usage      Usage
}

// StreamErrorKind discriminates the StreamError tagged union.
type StreamErrorKind string

const (
	StreamErrCancelled StreamErrorKind = "cancelled"
	StreamErrSSEParse  StreamErrorKind = "sse_parse"
	StreamErrProvider  StreamErrorKind = "provider"
)

// ProviderErrorKind classifies a provider-reported failure. Every kind is
// retryable except Unknown, which covers errors too unfamiliar to assume
// are transient.
type ProviderErrorKind string

const (
	ProviderErrStreamError        ProviderErrorKind = "stream_error"
	ProviderErrStreamRetry        ProviderErrorKind = "stream_retry"
	ProviderErrRateLimitExceeded  ProviderErrorKind = "rate_limit_exceeded"
	ProviderErrResponseFailed     ProviderErrorKind = "response_failed"
	ProviderErrOverloaded         ProviderErrorKind = "overloaded"
	ProviderErrServiceUnavailable ProviderErrorKind = "service_unavailable"
	ProviderErrTimeout            ProviderErrorKind = "timeout"
	ProviderErrUnknown            ProviderErrorKind = "unknown"
)

// Retryable reports whether the agent loop may retry a stream that failed
// with this provider error kind.
func (k ProviderErrorKind) Retryable() bool {
	return k != ProviderErrUnknown
}

// StreamError is the terminal failure of a stream.
type StreamError struct {
	Kind StreamErrorKind

	// Details is set when Kind == StreamErrSSEParse.
	Details string

	// ProviderKind, RawType, and Message are set when Kind ==
	// StreamErrProvider. RawType preserves the provider's own error type
	// string (e.g. Anthropic's "overloaded_error") for diagnostics even
	// when it maps to ProviderErrUnknown.
	ProviderKind ProviderErrorKind
	RawType      string
	Message      string
}

// Retryable reports whether the agent loop may retry after this error.
func (e *StreamError) Retryable() bool {
	if e == nil {
		return false
	}
	switch e.Kind {
	case StreamErrProvider:
		return e.ProviderKind.Retryable()
	default:
		return false
	}
}
