// Package approval serializes tool-approval prompts to one outstanding
// request per session, so a client never has to juggle more than one
// pending decision for a given conversation at a time.
package approval

import (
	"context"
	"sync"

	"github.com/BrendanGraham14/steer-sub008/internal/event"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// Scope describes how long an approval should stick.
type Scope string

const (
	// ScopeOnce approves a single call and nothing else.
	ScopeOnce Scope = "once"
	// ScopeSession approves every future call to the same tool name for
	// the rest of the session, skipping the prompt entirely.
	ScopeSession Scope = "session"
)

// Decision is the user's resolution of a pending approval request.
type Decision struct {
	Granted bool
	Scope   Scope
}

// Request describes a tool call awaiting approval.
type Request struct {
	SessionID types.SessionID   `json:"sessionId"`
	CallID    types.ToolCallID  `json:"callId"`
	ToolName  string            `json:"toolName"`
	Title     string            `json:"title"`
}

type pendingApproval struct {
	req    Request
	respCh chan Decision
}

// Coordinator tracks, per session, at most one outstanding approval
// request plus the set of tool names already approved for the rest of
// the session: one pending request per session, with callers serialized
// FIFO rather than tracked by many concurrent pending ids.
type Coordinator struct {
	mu            sync.Mutex
	sessionLocks  map[types.SessionID]*sync.Mutex
	pending       map[types.SessionID]*pendingApproval
	approvedTools map[types.SessionID]map[string]bool
}

// NewCoordinator creates an empty Coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		sessionLocks:  make(map[types.SessionID]*sync.Mutex),
		pending:       make(map[types.SessionID]*pendingApproval),
		approvedTools: make(map[types.SessionID]map[string]bool),
	}
}

// IsApproved reports whether toolName has already been granted
// session-wide approval, letting a caller skip Ask entirely.
func (c *Coordinator) IsApproved(sessionID types.SessionID, toolName string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.approvedTools[sessionID][toolName]
}

func (c *Coordinator) sessionLock(sessionID types.SessionID) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lk, ok := c.sessionLocks[sessionID]
	if !ok {
		lk = &sync.Mutex{}
		c.sessionLocks[sessionID] = lk
	}
	return lk
}

// Ask publishes a ToolApprovalRequested event and blocks until Respond
// resolves it or ctx is cancelled. Concurrent calls for the same session
// queue behind the session's lock, so only one request is ever pending at
// a time — "tools are approved FIFO" per session.
func (c *Coordinator) Ask(ctx context.Context, req Request) (Decision, error) {
	lk := c.sessionLock(req.SessionID)
	lk.Lock()
	defer lk.Unlock()

	respCh := make(chan Decision, 1)
	c.mu.Lock()
	c.pending[req.SessionID] = &pendingApproval{req: req, respCh: respCh}
	c.mu.Unlock()

	event.PublishSync(event.Event{Type: event.ToolApprovalRequested, Data: req})

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.SessionID)
		c.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return Decision{}, ctx.Err()
	case dec := <-respCh:
		if dec.Granted && dec.Scope == ScopeSession {
			c.mu.Lock()
			if c.approvedTools[req.SessionID] == nil {
				c.approvedTools[req.SessionID] = make(map[string]bool)
			}
			c.approvedTools[req.SessionID][req.ToolName] = true
			c.mu.Unlock()
			event.PublishSync(event.Event{Type: event.ToolApprovalGranted, Data: req})
		}
		event.PublishSync(event.Event{Type: event.ToolApprovalResolved, Data: dec})
		return dec, nil
	}
}

// Respond resolves the pending approval for sessionID, if callID matches
// it. It reports false for a stale id or a session with nothing pending,
// so the caller can reject the command with a notice instead of applying it.
func (c *Coordinator) Respond(sessionID types.SessionID, callID types.ToolCallID, dec Decision) bool {
	c.mu.Lock()
	pa, ok := c.pending[sessionID]
	c.mu.Unlock()
	if !ok || pa.req.CallID != callID {
		return false
	}
	pa.respCh <- dec
	return true
}

// ClearSession drops a session's approvals and lock state, e.g. when the
// session is deleted.
func (c *Coordinator) ClearSession(sessionID types.SessionID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.approvedTools, sessionID)
	delete(c.sessionLocks, sessionID)
	delete(c.pending, sessionID)
}
