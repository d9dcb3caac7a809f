package session

import (
	"encoding/json"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// State is the materialized view of one session: the fold of its event
// log plus a handful of fields an actor needs to track but never
// persists directly (the active operation id, the live pending-approval
// marker). Apply is the only way State changes; LoadState replays a whole log
// into a fresh State.
type State struct {
	ID types.SessionID

	Messages []types.Message
	Model    string
	System   string

	ApprovedTools map[string]bool
	McpBackends   map[string][]string // server name -> tool names

	Title string

	ShareToken string

	HeadSeq types.EventSeq

	ActiveOpID    types.OpID
	PendingApproval *types.ToolCallID
}

// NewState returns an empty State for a freshly created session.
func NewState(id types.SessionID) *State {
	return &State{
		ID:            id,
		ApprovedTools: make(map[string]bool),
		McpBackends:   make(map[string][]string),
	}
}

// LoadState folds events, in order, into a fresh State. Events must
// already be sorted by Seq (eventstore.Store.Load guarantees this).
func LoadState(id types.SessionID, events []types.Event) (*State, error) {
	st := NewState(id)
	for _, ev := range events {
		if err := st.Apply(ev); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// Apply folds one event into the state. Unknown kinds are ignored rather
// than treated as an error, per the forward-compatible "UnknownEvent"
// read behavior: a session with events written by a newer build should
// still load.
func (s *State) Apply(ev types.Event) error {
	s.HeadSeq = ev.Seq

	switch ev.Kind {
	case types.EventMessageAppended:
		var p types.MessageAppendedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Messages = append(s.Messages, p.Message)

	case types.EventOperationStarted:
		var p types.OperationStartedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.ActiveOpID = p.OpID
		if p.Model != "" {
			s.Model = p.Model
		}

	case types.EventOperationCompleted, types.EventOperationCancelled:
		s.ActiveOpID = ""
		s.PendingApproval = nil

	case types.EventToolApprovalGranted:
		var p types.ToolApprovalPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		if p.Remember {
			s.ApprovedTools[p.ToolName] = true
		}
		s.PendingApproval = nil

	case types.EventToolApprovalDenied:
		s.PendingApproval = nil

	case types.EventModelChanged:
		var p types.ModelChangedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Model = p.Model

	case types.EventSystemPromptChanged:
		var p types.SystemPromptChangedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.System = p.Prompt

	case types.EventMcpBackendRegistered:
		var p types.McpBackendPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.McpBackends[p.ServerName] = p.ToolNames

	case types.EventMcpBackendRemoved:
		var p types.McpBackendPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		delete(s.McpBackends, p.ServerName)

	case types.EventSessionTitled:
		var p types.SessionTitledPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.Title = p.Title

	case types.EventSessionShared:
		var p types.SessionSharedPayload
		if err := json.Unmarshal(ev.Payload, &p); err != nil {
			return err
		}
		s.ShareToken = p.Token

	case types.EventSessionUnshared:
		s.ShareToken = ""

	default:
		// Forward-compatible: a newer kind this build doesn't know about
		// yet is skipped, not an error.
	}
	return nil
}

// Snapshot returns a defensive copy of the message history, safe for a
// caller to hold onto after the actor's lock is released.
func (s *State) Snapshot() []types.Message {
	out := make([]types.Message, len(s.Messages))
	copy(out, s.Messages)
	return out
}

// ApprovedToolNames returns the set of tool names approved for the rest
// of the session, as a slice for event payloads and snapshots.
func (s *State) ApprovedToolNames() []string {
	out := make([]string, 0, len(s.ApprovedTools))
	for name := range s.ApprovedTools {
		out = append(out, name)
	}
	return out
}
