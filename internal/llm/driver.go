package llm

import (
	"context"
	"io"

	"github.com/cloudwego/eino/schema"
)

// runStream drives an eino message stream to completion, translating each
// chunk into zero or more Deltas and computing the terminal Outcome once
// the reader reports io.EOF, an error, or ctx is cancelled. Shared by every
// provider adapter's Stream method since this loop does not vary by
// provider; only how the *schema.StreamReader is obtained does.
func runStream(ctx context.Context, rawType string, reader *schema.StreamReader[*schema.Message]) (<-chan Delta, func() Outcome) {
	out := make(chan Delta, 16)
	done := make(chan struct{})
	var outcome Outcome

	send := func(d Delta) bool {
		select {
		case out <- d:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(out)
		defer close(done)
		defer reader.Close()

		st := newChunkState()
		finishReason := ""
		var usage Usage

		for {
			if ctx.Err() != nil {
				outcome = Outcome{Kind: OutcomeError, Error: &StreamError{Kind: StreamErrCancelled}}
				return
			}

			msg, err := reader.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				outcome = Outcome{Kind: OutcomeError, Error: classifyStreamError(rawType, err)}
				return
			}

			for _, d := range deltasFromChunk(msg, st) {
				if d.Kind == DeltaUsageUpdate {
					usage = *d.Usage
				}
				if !send(d) {
					outcome = Outcome{Kind: OutcomeError, Error: &StreamError{Kind: StreamErrCancelled}}
					return
				}
			}

			if msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason != "" {
				finishReason = msg.ResponseMeta.FinishReason
			}
		}

		outcome = Outcome{Kind: OutcomeStop, StopReason: finishReasonFromMeta(finishReason), Usage: usage}
	}()

	return out, func() Outcome {
		<-done
		return outcome
	}
}
