package agentloop

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// CompactionConfig tunes when and how a session's history gets
// summarized to keep it inside a model's context window.
type CompactionConfig struct {
	// MinMessagesToKeep is the tail of the conversation, verbatim,
	// never folded into the summary.
	MinMessagesToKeep int
	// SummaryMaxTokens bounds the summary's length.
	SummaryMaxTokens int
	// ContextThreshold is the fraction of a model's context window
	// that triggers an automatic compaction.
	ContextThreshold float64
}

// DefaultCompactionConfig returns the standard compaction thresholds.
func DefaultCompactionConfig() CompactionConfig {
	return CompactionConfig{
		MinMessagesToKeep: 4,
		SummaryMaxTokens:  2000,
		ContextThreshold:  0.75,
	}
}

const compactionSystemPrompt = `You are summarizing a coding assistant conversation so it can continue with a smaller context. Produce a concise but complete summary: what the user asked for, what has been done so far, any file paths or commands that matter, and any outstanding next steps. Do not add commentary about the summarization itself.`

// Compactor runs the Compacting sub-turn: summarizing the oldest portion
// of a session's history into a single Assistant message so the turn can
// resume within a smaller context.
type Compactor struct {
	Client llm.Client
	Config CompactionConfig
}

// NewCompactor creates a Compactor with DefaultCompactionConfig.
func NewCompactor(client llm.Client) *Compactor {
	return &Compactor{Client: client, Config: DefaultCompactionConfig()}
}

// ShouldCompact reports whether usage against contextWindow has crossed
// the configured threshold. Uses the precise counts internal/llm's
// DeltaUsageUpdate/Outcome.Usage already surface rather than a
// client-side length-based estimate, since a provider reports real
// usage before this is ever checked.
func (c *Compactor) ShouldCompact(usage llm.Usage, contextWindow int) bool {
	if contextWindow <= 0 {
		return false
	}
	used := usage.InputTokens + usage.OutputTokens
	return float64(used)/float64(contextWindow) >= c.Config.ContextThreshold
}

// Compact summarizes messages[:len(messages)-Config.MinMessagesToKeep] into one
// Assistant message and returns the replacement history: the summary
// followed by the preserved tail. When auto is true (the compaction was
// triggered automatically rather than by an explicit command), a
// trailing nudge user message is appended so the model picks its next
// steps back up without the caller needing to supply one.
func (c *Compactor) Compact(ctx context.Context, model string, messages []types.Message, auto bool) ([]types.Message, error) {
	if len(messages) <= c.Config.MinMessagesToKeep {
		return messages, nil
	}
	compactEnd := len(messages) - c.Config.MinMessagesToKeep
	prompt := buildSummaryPrompt(messages[:compactEnd])

	req := llm.Request{
		Model:        model,
		SystemPrompt: compactionSystemPrompt,
		Messages:     []types.Message{*types.NewUserTextMessage(prompt)},
		MaxTokens:    c.Config.SummaryMaxTokens,
	}

	deltas, outcomeFn := c.Client.Stream(ctx, req)
	var text strings.Builder
	for d := range deltas {
		if d.Kind == llm.DeltaTextChunk {
			text.WriteString(d.Text)
		}
	}
	outcome := outcomeFn()
	if outcome.Kind == llm.OutcomeError {
		return nil, fmt.Errorf("agent loop: compaction failed: %s", outcome.Error.Message)
	}

	summary := types.Message{
		ID:        types.NewMessageID(types.RoleAssistant),
		Role:      types.RoleAssistant,
		Timestamp: time.Now().Unix(),
		Assistant: &types.AssistantMessage{Content: []types.AssistantBlock{
			{Kind: types.AssistantBlockText, Text: text.String()},
		}},
	}

	result := make([]types.Message, 0, len(messages[compactEnd:])+2)
	result = append(result, summary)
	result = append(result, messages[compactEnd:]...)
	if auto {
		result = append(result, *types.NewUserTextMessage("Continue if you have next steps."))
	}
	return result, nil
}

// buildSummaryPrompt renders the portion of history being compacted into
// plain text for the summarization request, truncating long tool
// outputs so the prompt itself doesn't blow the context it's trying to
// shrink.
func buildSummaryPrompt(messages []types.Message) string {
	var sb strings.Builder
	sb.WriteString("Conversation to summarize:\n\n")
	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			sb.WriteString("User: " + m.TextContent() + "\n")
		case types.RoleAssistant:
			if text := m.TextContent(); text != "" {
				sb.WriteString("Assistant: " + text + "\n")
			}
			for _, call := range m.ToolCalls() {
				fmt.Fprintf(&sb, "  called %s(%s)\n", call.Name, truncate(string(call.Parameters), 200))
			}
		case types.RoleTool:
			if m.Tool != nil {
				sb.WriteString("Tool result: " + truncate(m.Tool.Result.LLMFormat(), 500) + "\n")
			}
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "... (truncated)"
}
