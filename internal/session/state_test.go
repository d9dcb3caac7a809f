package session

import (
	"encoding/json"
	"testing"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

func TestLoadState_FoldsMessagesAndModel(t *testing.T) {
	id := types.NewSessionID()
	msg := *types.NewUserTextMessage("hello")
	events := []types.Event{
		{Seq: 1, Kind: types.EventMessageAppended, Payload: marshalFor(t, types.MessageAppendedPayload{Message: msg})},
		{Seq: 2, Kind: types.EventModelChanged, Payload: marshalFor(t, types.ModelChangedPayload{Model: "anthropic/claude"})},
		{Seq: 3, Kind: types.EventSessionTitled, Payload: marshalFor(t, types.SessionTitledPayload{Title: "Debugging auth"})},
	}

	st, err := LoadState(id, events)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(st.Messages) != 1 || st.Messages[0].ID != msg.ID {
		t.Fatalf("unexpected messages: %+v", st.Messages)
	}
	if st.Model != "anthropic/claude" {
		t.Fatalf("unexpected model: %q", st.Model)
	}
	if st.Title != "Debugging auth" {
		t.Fatalf("unexpected title: %q", st.Title)
	}
	if st.HeadSeq != 3 {
		t.Fatalf("unexpected head seq: %d", st.HeadSeq)
	}
}

func TestState_ApprovalGrantedWithRememberUpdatesApprovedTools(t *testing.T) {
	st := NewState(types.NewSessionID())
	err := st.Apply(types.Event{
		Seq:  1,
		Kind: types.EventToolApprovalGranted,
		Payload: marshalFor(t, types.ToolApprovalPayload{
			ToolCallID: types.NewToolCallID(), ToolName: "bash", Remember: true,
		}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.ApprovedTools["bash"] {
		t.Fatal("expected bash to be remembered as approved")
	}
}

func TestState_UnknownEventKindIsIgnored(t *testing.T) {
	st := NewState(types.NewSessionID())
	err := st.Apply(types.Event{Seq: 1, Kind: types.EventKind("future_kind"), Payload: []byte(`{}`)})
	if err != nil {
		t.Fatalf("unknown kind should not error: %v", err)
	}
	if st.HeadSeq != 1 {
		t.Fatalf("expected head seq to advance even for unknown kinds, got %d", st.HeadSeq)
	}
}

func TestState_McpBackendRegisteredThenRemoved(t *testing.T) {
	st := NewState(types.NewSessionID())
	st.Apply(types.Event{Kind: types.EventMcpBackendRegistered, Payload: marshalFor(t, types.McpBackendPayload{ServerName: "calc", ToolNames: []string{"add"}})})
	if _, ok := st.McpBackends["calc"]; !ok {
		t.Fatal("expected calc backend to be registered")
	}
	st.Apply(types.Event{Kind: types.EventMcpBackendRemoved, Payload: marshalFor(t, types.McpBackendPayload{ServerName: "calc"})})
	if _, ok := st.McpBackends["calc"]; ok {
		t.Fatal("expected calc backend to be removed")
	}
}

func marshalFor(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
