package types

import "encoding/json"

// EventKind discriminates the Event tagged union. A session's state is
// nothing more than the ordered fold of its events over these kinds.
type EventKind string

const (
	EventMessageAppended      EventKind = "message_appended"
	EventOperationStarted     EventKind = "operation_started"
	EventOperationCompleted   EventKind = "operation_completed"
	EventOperationCancelled   EventKind = "operation_cancelled"
	EventToolApprovalGranted  EventKind = "tool_approval_granted"
	EventToolApprovalDenied   EventKind = "tool_approval_denied"
	EventModelChanged         EventKind = "model_changed"
	EventSystemPromptChanged  EventKind = "system_prompt_changed"
	EventMcpBackendRegistered EventKind = "mcp_backend_registered"
	EventMcpBackendRemoved    EventKind = "mcp_backend_removed"
	EventSessionShared        EventKind = "session_shared"
	EventSessionUnshared      EventKind = "session_unshared"
	EventSessionTitled        EventKind = "session_titled"
)

// Event is a single persisted fact in a session's log. Seq is assigned by
// the event store at append time and is strictly monotonic per session,
// starting at 1 (invariant: no gaps, no reordering on replay).
type Event struct {
	SessionID SessionID       `json:"sessionId"`
	Seq       EventSeq        `json:"seq"`
	Timestamp int64           `json:"timestamp"`
	Kind      EventKind       `json:"kind"`
	Payload   json.RawMessage `json:"payload"`
}

// MessageAppendedPayload is the payload of an EventMessageAppended event.
type MessageAppendedPayload struct {
	Message Message `json:"message"`
	OpID    OpID    `json:"opId"`
}

// OperationStartedPayload is the payload of an EventOperationStarted
// event. ApprovedTools is the policy snapshot in effect for this
// operation; it is never replayed into the live approval cache across a
// process restart (see design decision in DESIGN.md).
type OperationStartedPayload struct {
	OpID          OpID     `json:"opId"`
	UserMessageID MessageID `json:"userMessageId"`
	Model         string   `json:"model"`
	ApprovedTools []string `json:"approvedTools,omitempty"`
}

// OperationCompletedPayload is the payload of an EventOperationCompleted
// event.
type OperationCompletedPayload struct {
	OpID       OpID   `json:"opId"`
	StopReason string `json:"stopReason"`
}

// OperationCancelledPayload is the payload of an EventOperationCancelled
// event.
type OperationCancelledPayload struct {
	OpID   OpID   `json:"opId"`
	Reason string `json:"reason,omitempty"`
}

// ToolApprovalPayload is the payload of both EventToolApprovalGranted and
// EventToolApprovalDenied events.
type ToolApprovalPayload struct {
	OpID       OpID       `json:"opId"`
	ToolCallID ToolCallID `json:"toolCallId"`
	ToolName   string     `json:"toolName"`
	Remember   bool       `json:"remember,omitempty"`
}

// ModelChangedPayload is the payload of an EventModelChanged event.
type ModelChangedPayload struct {
	Model string `json:"model"`
}

// SystemPromptChangedPayload is the payload of an
// EventSystemPromptChanged event.
type SystemPromptChangedPayload struct {
	Prompt string `json:"prompt"`
}

// McpBackendPayload is the payload of both EventMcpBackendRegistered and
// EventMcpBackendRemoved events.
type McpBackendPayload struct {
	ServerName string   `json:"serverName"`
	ToolNames  []string `json:"toolNames,omitempty"`
}

// SessionSharedPayload is the payload of an EventSessionShared event.
type SessionSharedPayload struct {
	Token string `json:"token"`
}

// SessionTitledPayload is the payload of an EventSessionTitled event.
type SessionTitledPayload struct {
	Title string `json:"title"`
}

// Marshal encodes a typed payload into an Event's Payload field.
func marshalPayload(p any) json.RawMessage {
	b, err := json.Marshal(p)
	if err != nil {
		panic("types: payload must be marshalable: " + err.Error())
	}
	return b
}

// NewMessageAppendedEvent constructs the Event wrapper for a
// MessageAppendedPayload; Seq and Timestamp are filled in by the event
// store at append time.
func NewMessageAppendedEvent(sessionID SessionID, msg Message, opID OpID) Event {
	return Event{
		SessionID: sessionID,
		Kind:      EventMessageAppended,
		Payload:   marshalPayload(MessageAppendedPayload{Message: msg, OpID: opID}),
	}
}
