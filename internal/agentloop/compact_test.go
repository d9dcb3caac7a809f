package agentloop

import (
	"context"
	"testing"

	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

func TestCompactor_ShouldCompact(t *testing.T) {
	c := NewCompactor(nil)
	if c.ShouldCompact(llm.Usage{InputTokens: 100, OutputTokens: 100}, 0) {
		t.Fatal("zero context window should never trigger compaction")
	}
	if c.ShouldCompact(llm.Usage{InputTokens: 100, OutputTokens: 100}, 1000) {
		t.Fatal("20% usage should not trigger compaction")
	}
	if !c.ShouldCompact(llm.Usage{InputTokens: 800, OutputTokens: 0}, 1000) {
		t.Fatal("80% usage should trigger compaction")
	}
}

func TestCompactor_Compact_BelowMinKeepsHistory(t *testing.T) {
	c := NewCompactor(nil)
	msgs := []types.Message{*types.NewUserTextMessage("hi")}
	out, err := c.Compact(context.Background(), "stub/model", msgs, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(msgs) {
		t.Fatalf("expected history unchanged below MinMessagesToKeep, got %d messages", len(out))
	}
}

func TestCompactor_Compact_SummarizesAndKeepsTail(t *testing.T) {
	client := &scriptedClient{turns: []scriptedTurn{
		{
			deltas:  []llm.Delta{textDelta("summary of the work so far")},
			outcome: llm.Outcome{Kind: llm.OutcomeStop, StopReason: llm.StopEnd},
		},
	}}
	c := NewCompactor(client)

	var msgs []types.Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs, *types.NewUserTextMessage("message"))
	}
	out, err := c.Compact(context.Background(), "stub/model", msgs, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// summary + MinMessagesToKeep tail + the auto continuation nudge.
	if len(out) != 1+c.Config.MinMessagesToKeep+1 {
		t.Fatalf("unexpected result length: %d", len(out))
	}
	if out[0].TextContent() != "summary of the work so far" {
		t.Fatalf("unexpected summary text: %q", out[0].TextContent())
	}
}

func TestCompactor_Compact_PropagatesStreamError(t *testing.T) {
	client := &scriptedClient{turns: []scriptedTurn{
		{outcome: llm.Outcome{Kind: llm.OutcomeError, Error: &llm.StreamError{Kind: llm.StreamErrCancelled}}},
	}}
	c := NewCompactor(client)

	var msgs []types.Message
	for i := 0; i < 8; i++ {
		msgs = append(msgs, *types.NewUserTextMessage("message"))
	}
	if _, err := c.Compact(context.Background(), "stub/model", msgs, false); err == nil {
		t.Fatal("expected error to propagate")
	}
}
