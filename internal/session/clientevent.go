package session

import (
	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// ClientEventKind discriminates everything a subscriber can receive off
// a session's broadcast channel: every persisted Event plus the
// ephemeral, non-persisted ones (deltas, usage, state transitions,
// notices, lag) a live UI needs but a freshly-loaded history does not.
type ClientEventKind string

const (
	ClientEventPersisted ClientEventKind = "persisted"
	ClientEventDelta     ClientEventKind = "delta"
	ClientEventState     ClientEventKind = "state"
	ClientEventNotice    ClientEventKind = "notice"
	ClientEventLag       ClientEventKind = "lag"
)

// NoticeLevel classifies a SystemNotice.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// ClientEvent is one item on a session's broadcast channel.
type ClientEvent struct {
	Kind ClientEventKind

	SessionID types.SessionID
	OpID      types.OpID

	// ClientEventPersisted
	Event *types.Event

	// ClientEventDelta
	Delta llm.Delta

	// ClientEventState
	State string

	// ClientEventNotice
	Level   NoticeLevel
	Message string

	// ClientEventLag: the number of events a subscriber is known to have
	// missed because its receive buffer was full. The subscriber should
	// reconcile by re-fetching session state rather than try to replay.
	Dropped int
}
