package llm

import (
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// chunkState tracks the running-index-to-call-id mapping across an eino
// stream so a delta-only fragment (no Index the provider didn't set, or a
// later chunk that repeats Index but not ID) can still be attributed to
// the right tool call, using the same running-index/ID dual lookup a
// chunk-by-chunk stream processor needs regardless of provider.
type chunkState struct {
	indexToCallID map[int]types.ToolCallID
	idToCallID    map[string]types.ToolCallID
}

func newChunkState() *chunkState {
	return &chunkState{
		indexToCallID: make(map[int]types.ToolCallID),
		idToCallID:    make(map[string]types.ToolCallID),
	}
}

// deltasFromChunk converts one streamed eino message chunk into zero or
// more Deltas, in the order the chunk's fields should be surfaced: text,
// then thinking, then one fragment per tool call present in this chunk.
func deltasFromChunk(msg *schema.Message, st *chunkState) []Delta {
	var deltas []Delta

	if msg.Content != "" {
		deltas = append(deltas, Delta{Kind: DeltaTextChunk, Text: msg.Content})
	}

	if msg.ReasoningContent != "" {
		deltas = append(deltas, Delta{Kind: DeltaThought, Thought: &ThoughtContent{Text: msg.ReasoningContent}})
	}

	for _, tc := range msg.ToolCalls {
		frag, ok := st.resolve(tc)
		if !ok {
			continue
		}
		deltas = append(deltas, Delta{Kind: DeltaToolCallFragment, ToolCallFragment: frag})
	}

	if msg.ResponseMeta != nil && msg.ResponseMeta.Usage != nil {
		u := msg.ResponseMeta.Usage
		deltas = append(deltas, Delta{Kind: DeltaUsageUpdate, Usage: &Usage{
			InputTokens:  u.PromptTokens,
			OutputTokens: u.CompletionTokens,
		}})
	}

	return deltas
}

// resolve attaches a streamed tool-call chunk to a stable CallID,
// assigning a fresh one the first time a given index or id is seen and
// reusing it for every later delta-only chunk of the same call.
func (st *chunkState) resolve(tc schema.ToolCall) (*ToolCallFragment, bool) {
	var key string
	var byIndex bool
	if tc.Index != nil {
		key = fmt.Sprintf("idx:%d", *tc.Index)
		byIndex = true
	} else if tc.ID != "" {
		key = tc.ID
	} else {
		return nil, false
	}

	var callID types.ToolCallID
	var known bool
	if byIndex {
		callID, known = st.indexToCallID[*tc.Index]
	} else {
		callID, known = st.idToCallID[key]
	}

	if !known {
		if tc.ID == "" {
			// A delta chunk for an index we haven't seen a start event
			// for yet; nothing to attribute it to.
			return nil, false
		}
		callID = types.NewToolCallID()
		if byIndex {
			st.indexToCallID[*tc.Index] = callID
		}
		st.idToCallID[tc.ID] = callID
	}

	return &ToolCallFragment{
		CallID:          callID,
		Name:            tc.Function.Name,
		ParamsJSONDelta: tc.Function.Arguments,
	}, true
}

// finishReasonFromMeta maps an eino ResponseMeta finish reason to a
// StopReason, defaulting to StopEnd for anything unrecognized (providers
// use "stop", "end_turn", "tool_use"/"tool-calls", "length"/"max_tokens"
// depending on SDK).
func finishReasonFromMeta(reason string) StopReason {
	switch reason {
	case "tool_use", "tool-calls", "tool_calls":
		return StopToolUse
	case "length", "max_tokens":
		return StopLength
	default:
		return StopEnd
	}
}
