package types

import (
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// SessionID identifies a session. UUID-shaped per the data model.
type SessionID string

// OpID identifies a single operation (one user-initiated unit of work).
// UUID-shaped per the data model.
type OpID string

// MessageID identifies a message. Carries a role prefix and a
// time-sortable ULID suffix so ordering is stable without a separate
// timestamp comparator.
type MessageID string

// ToolCallID identifies a tool call and ties it to its result.
type ToolCallID string

// EventSeq is the monotonic per-session sequence number of a
// persisted event, starting at 1.
type EventSeq int64

// NewSessionID mints a fresh UUID-shaped session id.
func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

// NewOpID mints a fresh UUID-shaped operation id.
func NewOpID() OpID {
	return OpID(uuid.NewString())
}

// MessageRole distinguishes the three message roles in the data model.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// NewMessageID mints a role-prefixed, time-sortable message id.
func NewMessageID(role MessageRole) MessageID {
	return MessageID(fmt.Sprintf("%s_%s", rolePrefix(role), ulid.Make().String()))
}

func rolePrefix(role MessageRole) string {
	switch role {
	case RoleUser:
		return "usr"
	case RoleAssistant:
		return "asb"
	case RoleTool:
		return "tol"
	default:
		return "msg"
	}
}

// NewToolCallID mints a fresh tool-call id.
func NewToolCallID() ToolCallID {
	return ToolCallID("call_" + ulid.Make().String())
}

// randomHex is used sparingly where a short opaque token is needed
// (e.g. share tokens) without pulling in a full ULID/UUID.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", buf), nil
}
