package agentloop

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// DefaultMaxSteps bounds the number of LLM-stream/tool-execution rounds
// a single Run performs before giving up, guarding against a model that
// never stops requesting tools.
const DefaultMaxSteps = 50

// maxRetryAttempts is the number of additional attempts a retryable
// stream failure gets before the turn fails outright, per the "max ~5
// attempts" retry discipline.
const maxRetryAttempts = 5

// Loop drives the turn state machine described in agentloop.go over a
// single llm.Client and ToolExecutor. A Loop has no session-scoped
// state of its own; every field a turn needs travels in its RunInput.
type Loop struct {
	Client   llm.Client
	Executor ToolExecutor

	// MaxSteps overrides DefaultMaxSteps when non-zero.
	MaxSteps int
	// MaxToolConcurrency bounds how many tool calls from one Assistant
	// message run at once. Zero means DefaultMaxToolConcurrency.
	MaxToolConcurrency int64

	// RetryBackoff overrides the backoff schedule streamTurn uses
	// between retryable stream failures. Nil means newStreamBackoff;
	// tests substitute a near-zero schedule to stay fast.
	RetryBackoff func() backoff.BackOff
}

func (l *Loop) retryBackoff() backoff.BackOff {
	if l.RetryBackoff != nil {
		return l.RetryBackoff()
	}
	return newStreamBackoff()
}

func (l *Loop) maxSteps() int {
	if l.MaxSteps > 0 {
		return l.MaxSteps
	}
	return DefaultMaxSteps
}

// Run drives one operation from an already-appended user message through
// to a terminal state: LlmStreaming, optionally CollectingToolCalls and
// ExecutingTools any number of times, then End/error/cancellation. It
// never mutates in.History; it returns only the terminal Outcome, and
// every message it appended along the way has already been delivered to
// in.Hooks.OnMessage in append order as it was produced.
func (l *Loop) Run(ctx context.Context, in RunInput) Outcome {
	history := append([]types.Message(nil), in.History...)
	schemas := toolSchemas(in.Tools)

	for step := 0; ; step++ {
		if step >= l.maxSteps() {
			in.Hooks.state(StateTerminal)
			return Outcome{Err: fmt.Errorf("agent loop: exceeded max steps (%d)", l.maxSteps())}
		}
		select {
		case <-ctx.Done():
			in.Hooks.state(StateTerminal)
			return Outcome{Err: ctx.Err()}
		default:
		}
		if in.AbortCh != nil {
			select {
			case <-in.AbortCh:
				in.Hooks.state(StateTerminal)
				return Outcome{Err: context.Canceled}
			default:
			}
		}

		in.Hooks.state(StateLlmStreaming)
		asstMsg, outcome, err := l.streamTurn(ctx, in, history, schemas)
		if err != nil {
			in.Hooks.state(StateTerminal)
			return Outcome{Err: err}
		}
		history = append(history, asstMsg)
		in.Hooks.message(asstMsg)

		switch outcome.StopReason {
		case llm.StopEnd:
			in.Hooks.state(StateTerminal)
			return Outcome{StopReason: llm.StopEnd, Usage: outcome.Usage}

		case llm.StopLength:
			in.Hooks.state(StateTerminal)
			return Outcome{
				StopReason: llm.StopLength,
				Usage:      outcome.Usage,
				Err:        fmt.Errorf("agent loop: response truncated at max length"),
			}

		case llm.StopToolUse:
			in.Hooks.state(StateCollectingToolCalls)
			calls := asstMsg.ToolCalls()
			if len(calls) == 0 {
				// The model signalled tool use but produced no tool-call
				// blocks; treat it like a clean End rather than looping
				// forever on an empty turn.
				in.Hooks.state(StateTerminal)
				return Outcome{StopReason: llm.StopEnd, Usage: outcome.Usage}
			}

			in.Hooks.state(StateExecutingTools)
			toolMsgs := l.executeTools(ctx, in, calls)
			for _, m := range toolMsgs {
				history = append(history, m)
				in.Hooks.message(m)
			}

		default:
			in.Hooks.state(StateTerminal)
			return Outcome{Err: fmt.Errorf("agent loop: unexpected stop reason %q", outcome.StopReason)}
		}
	}
}

// streamTurn runs one LLM stream to completion, retrying retryable
// failures with exponential backoff, and returns the finalized Assistant
// message plus the stream's terminal Outcome. Each retry resends the
// identical message list, per the "re-enter LlmStreaming after backoff"
// transition.
func (l *Loop) streamTurn(ctx context.Context, in RunInput, history []types.Message, tools []llm.ToolSchema) (types.Message, llm.Outcome, error) {
	var msg types.Message
	var outcome llm.Outcome

	b := backoff.WithContext(backoff.WithMaxRetries(l.retryBackoff(), maxRetryAttempts), ctx)
	err := backoff.Retry(func() error {
		req := llm.Request{
			Model:        in.Model,
			SystemPrompt: in.SystemPrompt,
			Messages:     history,
			Tools:        tools,
			MaxTokens:    in.MaxTokens,
			Temperature:  in.Temperature,
		}

		deltas, outcomeFn := l.Client.Stream(ctx, req)
		acc := newAccumulator()
		for d := range deltas {
			acc.apply(d)
			in.Hooks.delta(d)
		}
		o := outcomeFn()

		if o.Kind == llm.OutcomeStop {
			msg = acc.message()
			outcome = o
			return nil
		}

		outcome = o
		if !o.Error.Retryable() {
			return backoff.Permanent(fmt.Errorf("agent loop: stream failed: %s", o.Error.Message))
		}
		return fmt.Errorf("agent loop: stream failed, retrying: %s", o.Error.Message)
	}, b)

	if err != nil {
		return types.Message{}, outcome, err
	}
	return msg, outcome, nil
}

// newStreamBackoff builds the retry schedule: an initial one-second
// wait doubling each attempt, randomized by half, capped at thirty
// seconds between attempts. MaxElapsedTime is left unbounded because
// maxRetryAttempts already caps total attempts.
func newStreamBackoff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.Multiplier = 2.0
	b.MaxInterval = 30 * time.Second
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	return b
}
