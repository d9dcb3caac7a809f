// Package appclient defines the single client-facing surface that both
// the local CLI and the remote gRPC service drive. Neither knows
// whether the session it's talking to lives in this process or across
// a network call; both go through the same AgentClient.
package appclient

import (
	"context"

	"github.com/BrendanGraham14/steer-sub008/internal/eventstore"
	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// AgentClient is the command/subscribe surface every front end (local
// TUI, headless runner, remote gRPC handler) drives a session through.
type AgentClient interface {
	CreateSession(ctx context.Context, directory string) (types.SessionID, error)
	ListSessions(ctx context.Context) ([]eventstore.SessionMeta, error)
	DeleteSession(ctx context.Context, id types.SessionID) error

	// SendCommand delivers cmd to the session's actor and waits for its
	// synchronous acceptance/rejection (not for the operation, if any,
	// that it starts, to finish).
	SendCommand(ctx context.Context, id types.SessionID, directory string, cmd session.Command) error

	// Subscribe joins the session's broadcast from this point forward.
	// The returned cancel func must be called to unsubscribe.
	Subscribe(ctx context.Context, id types.SessionID, directory string) (<-chan session.ClientEvent, func(), error)

	// Snapshot returns the session's current materialized history.
	Snapshot(ctx context.Context, id types.SessionID, directory string) (history []types.Message, approvedTools []string, model string, title string, shareToken string, err error)
}

// Local is the in-process AgentClient implementation, backing both the
// CLI's direct command path and the remote gRPC handlers (which wrap a
// Local with network framing, not their own session logic).
type Local struct {
	manager *session.Manager
}

// NewLocal builds a Local client around an already-constructed Session
// Manager.
func NewLocal(manager *session.Manager) *Local {
	return &Local{manager: manager}
}

func (l *Local) CreateSession(ctx context.Context, directory string) (types.SessionID, error) {
	_, id, err := l.manager.CreateSession(ctx, directory)
	return id, err
}

func (l *Local) ListSessions(ctx context.Context) ([]eventstore.SessionMeta, error) {
	return l.manager.ListSessions(ctx)
}

func (l *Local) DeleteSession(ctx context.Context, id types.SessionID) error {
	return l.manager.DeleteSession(ctx, id)
}

func (l *Local) SendCommand(ctx context.Context, id types.SessionID, directory string, cmd session.Command) error {
	actor, err := l.manager.Activate(ctx, id, directory)
	if err != nil {
		return err
	}
	if cmd.Result == nil {
		cmd.Result = make(chan error, 1)
	}
	actor.Send(cmd)
	select {
	case err := <-cmd.Result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Local) Subscribe(ctx context.Context, id types.SessionID, directory string) (<-chan session.ClientEvent, func(), error) {
	actor, err := l.manager.Activate(ctx, id, directory)
	if err != nil {
		return nil, nil, err
	}
	ch, unsub := actor.Subscribe()
	return ch, unsub, nil
}

func (l *Local) Snapshot(ctx context.Context, id types.SessionID, directory string) ([]types.Message, []string, string, string, string, error) {
	actor, err := l.manager.Activate(ctx, id, directory)
	if err != nil {
		return nil, nil, "", "", "", err
	}
	history, approved, model, title, shareToken := actor.Snapshot()
	return history, approved, model, title, shareToken, nil
}
