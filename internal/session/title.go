package session

import (
	"context"
	"strings"

	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const titleSystemPrompt = `You are a title generator. You output ONLY a thread title. Nothing else.

Generate a brief title that would help the user find this conversation later.

Rules:
- A single line, <=50 characters
- No explanations
- Use -ing verbs for actions (Debugging, Implementing, Analyzing)
- Keep exact: technical terms, numbers, filenames
- Remove: the, this, my, a, an
- Always output something meaningful

Examples:
"debug 500 errors in production" -> Debugging production 500 errors
"refactor user service" -> Refactoring user service
"implement rate limiting" -> Implementing rate limiting`

const defaultTitlePrefix = "New Session"

// isDefaultTitle reports whether title is still the placeholder a fresh
// session starts with.
func isDefaultTitle(title string) bool {
	return title == "" || title == defaultTitlePrefix || strings.HasPrefix(title, defaultTitlePrefix)
}

// generateTitle asks client/model for a short title summarizing
// userContent, draining the stream itself rather than going through
// agentloop (a title generation is a one-shot, toolless, un-persisted
// completion — it has no turn state machine to speak of). Returns ""
// on any failure; callers treat that as "leave the default title".
func generateTitle(ctx context.Context, client llm.Client, model, userContent string) string {
	if client == nil {
		return ""
	}
	req := llm.Request{
		Model:        model,
		SystemPrompt: titleSystemPrompt,
		Messages:     []types.Message{*types.NewUserTextMessage("Generate a title for this conversation:\n\n" + userContent)},
		MaxTokens:    50,
	}

	deltas, outcomeFn := client.Stream(ctx, req)
	var sb strings.Builder
	for d := range deltas {
		if d.Kind == llm.DeltaTextChunk {
			sb.WriteString(d.Text)
		}
	}
	if outcomeFn().Kind != llm.OutcomeStop {
		return ""
	}

	title := strings.TrimSpace(sb.String())
	for _, line := range strings.Split(title, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			title = line
			break
		}
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}
	return title
}
