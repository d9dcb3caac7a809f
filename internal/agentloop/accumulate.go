package agentloop

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// accumulator folds one stream's Deltas into the single Assistant message
// they describe. Text and thought deltas concatenate in arrival order;
// tool-call fragments accumulate their argument JSON per call id and
// resolve into one tool-call block apiece, in first-seen order, mirroring
// how every provider adapter in internal/llm interleaves fragments across
// a single stream.
type accumulator struct {
	text    strings.Builder
	thought *types.Thought
	order   []types.ToolCallID
	calls   map[types.ToolCallID]*pendingCall
}

type pendingCall struct {
	name string
	args strings.Builder
}

func newAccumulator() *accumulator {
	return &accumulator{calls: make(map[types.ToolCallID]*pendingCall)}
}

func (a *accumulator) apply(d llm.Delta) {
	switch d.Kind {
	case llm.DeltaTextChunk:
		a.text.WriteString(d.Text)
	case llm.DeltaThought:
		a.applyThought(d.Thought)
	case llm.DeltaToolCallFragment:
		a.applyToolCall(d.ToolCallFragment)
	}
}

func (a *accumulator) applyThought(t *llm.ThoughtContent) {
	if t == nil {
		return
	}
	if a.thought == nil {
		a.thought = &types.Thought{}
	}
	if t.Opaque != "" {
		a.thought.Shape = types.ThoughtRedacted
		a.thought.Opaque += t.Opaque
		return
	}
	a.thought.Text += t.Text
	switch {
	case t.Signature != "":
		a.thought.Shape = types.ThoughtSigned
		a.thought.Signature = t.Signature
	case a.thought.Shape == "":
		a.thought.Shape = types.ThoughtPlain
	}
}

func (a *accumulator) applyToolCall(f *llm.ToolCallFragment) {
	if f == nil {
		return
	}
	pc, ok := a.calls[f.CallID]
	if !ok {
		pc = &pendingCall{name: f.Name}
		a.calls[f.CallID] = pc
		a.order = append(a.order, f.CallID)
	} else if f.Name != "" {
		pc.name = f.Name
	}
	pc.args.WriteString(f.ParamsJSONDelta)
}

// message finalizes the accumulated content into an Assistant message,
// ordering blocks thought-then-text-then-tool-calls. A turn with no text
// and no tool calls yields an Assistant message with an empty Content
// slice, which is the correct representation of the "model said nothing"
// edge case rather than an error.
func (a *accumulator) message() types.Message {
	var blocks []types.AssistantBlock
	if a.thought != nil {
		blocks = append(blocks, types.AssistantBlock{Kind: types.AssistantBlockThought, Thought: a.thought})
	}
	if a.text.Len() > 0 {
		blocks = append(blocks, types.AssistantBlock{Kind: types.AssistantBlockText, Text: a.text.String()})
	}
	for _, id := range a.order {
		pc := a.calls[id]
		blocks = append(blocks, types.AssistantBlock{
			Kind: types.AssistantBlockToolCall,
			ToolCall: &types.ToolCall{
				ID:         id,
				Name:       pc.name,
				Parameters: json.RawMessage(pc.args.String()),
			},
		})
	}
	return types.Message{
		ID:        types.NewMessageID(types.RoleAssistant),
		Role:      types.RoleAssistant,
		Timestamp: time.Now().Unix(),
		Assistant: &types.AssistantMessage{Content: blocks},
	}
}
