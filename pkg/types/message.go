// Package types defines the wire- and storage-level data model shared by
// every core subsystem: messages, tool calls/results, and the events that
// make a session the fold of its history.
package types

import "encoding/json"

// Message is a tagged union over the three roles in a conversation. Every
// message carries an id, a unix-seconds timestamp, and an optional parent
// for branching/edits. Exactly one of User, Assistant, Tool is populated,
// matching Role.
type Message struct {
	ID              MessageID   `json:"id"`
	Role            MessageRole `json:"role"`
	Timestamp       int64       `json:"timestamp"`
	ParentMessageID *MessageID  `json:"parentMessageId,omitempty"`

	User      *UserMessage      `json:"user,omitempty"`
	Assistant *AssistantMessage `json:"assistant,omitempty"`
	Tool      *ToolMessage      `json:"tool,omitempty"`
}

// UserMessage is an ordered list of content blocks authored by the user.
type UserMessage struct {
	Content []UserBlock `json:"content"`
}

// UserBlockKind discriminates UserBlock variants.
type UserBlockKind string

const (
	UserBlockText    UserBlockKind = "text"
	UserBlockImage   UserBlockKind = "image"
	UserBlockCommand UserBlockKind = "command"
)

// UserBlock is a tagged union: text, image (by reference or inline), or a
// recorded command-execution transcript.
type UserBlock struct {
	Kind UserBlockKind `json:"kind"`

	Text  string     `json:"text,omitempty"`
	Image *ImageRef  `json:"image,omitempty"`
	Cmd   *CommandTx `json:"cmd,omitempty"`
}

// ImageRef is either a URL/path reference or inline base64 data.
type ImageRef struct {
	Source    string `json:"source,omitempty"` // url or filesystem path
	InlineB64 string `json:"inlineB64,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
}

// CommandTx records a shell command the user ran inline and its captured
// transcript, so the conversation can reference it verbatim.
type CommandTx struct {
	Command  string `json:"command"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	ExitCode int    `json:"exitCode"`
}

// AssistantMessage is an ordered list of blocks the model produced.
type AssistantMessage struct {
	Content []AssistantBlock `json:"content"`
}

// AssistantBlockKind discriminates AssistantBlock variants.
type AssistantBlockKind string

const (
	AssistantBlockText     AssistantBlockKind = "text"
	AssistantBlockImage    AssistantBlockKind = "image"
	AssistantBlockToolCall AssistantBlockKind = "tool_call"
	AssistantBlockThought  AssistantBlockKind = "thought"
)

// AssistantBlock is a tagged union: text, image, tool-call, or thought.
type AssistantBlock struct {
	Kind AssistantBlockKind `json:"kind"`

	Text     string    `json:"text,omitempty"`
	Image    *ImageRef `json:"image,omitempty"`
	ToolCall *ToolCall `json:"toolCall,omitempty"`
	Thought  *Thought  `json:"thought,omitempty"`
}

// ThoughtShape discriminates the three ways a provider returns thinking
// content; all three are preserved verbatim so later turns can round-trip
// them back to the provider.
type ThoughtShape string

const (
	ThoughtPlain    ThoughtShape = "plain"
	ThoughtSigned   ThoughtShape = "signed"
	ThoughtRedacted ThoughtShape = "redacted"
)

// Thought carries one of the three shapes. Redacted thoughts keep only an
// opaque blob; signed thoughts keep text plus an opaque signature.
type Thought struct {
	Shape     ThoughtShape `json:"shape"`
	Text      string       `json:"text,omitempty"`
	Signature string       `json:"signature,omitempty"`
	Opaque    string       `json:"opaque,omitempty"` // base64, verbatim provider blob
}

// ToolCall is the request the assistant emits. ID ties it to the Tool
// message carrying its result.
type ToolCall struct {
	ID         ToolCallID      `json:"id"`
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters"`
}

// ToolMessage carries the result of a single tool call. ToolUseID MUST
// match a tool-call block in a preceding Assistant message (invariant 1).
type ToolMessage struct {
	ToolUseID ToolCallID `json:"toolUseId"`
	Result    ToolResult `json:"result"`
}

// NewUserTextMessage is a convenience constructor used by the session
// actor when appending a plain-text user turn.
func NewUserTextMessage(text string) *Message {
	return &Message{
		ID:   NewMessageID(RoleUser),
		Role: RoleUser,
		User: &UserMessage{Content: []UserBlock{{Kind: UserBlockText, Text: text}}},
	}
}

// TextContent concatenates the text of every text block in a User or
// Assistant message, ignoring other block kinds. Used for title
// generation and simple display contexts.
func (m *Message) TextContent() string {
	var out string
	switch m.Role {
	case RoleUser:
		if m.User == nil {
			return ""
		}
		for _, b := range m.User.Content {
			if b.Kind == UserBlockText {
				out += b.Text
			}
		}
	case RoleAssistant:
		if m.Assistant == nil {
			return ""
		}
		for _, b := range m.Assistant.Content {
			if b.Kind == AssistantBlockText {
				out += b.Text
			}
		}
	}
	return out
}

// ToolCalls returns every tool-call block in an Assistant message, in
// request order.
func (m *Message) ToolCalls() []ToolCall {
	if m.Role != RoleAssistant || m.Assistant == nil {
		return nil
	}
	var calls []ToolCall
	for _, b := range m.Assistant.Content {
		if b.Kind == AssistantBlockToolCall && b.ToolCall != nil {
			calls = append(calls, *b.ToolCall)
		}
	}
	return calls
}
