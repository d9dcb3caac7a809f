package session

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/eventstore"
	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// DefaultMaxConcurrentSessions bounds how many sessions the Manager
// keeps loaded (actor goroutine + in-memory State) at once before it
// starts evicting the least recently activated one.
const DefaultMaxConcurrentSessions = 32

// ManagerConfig configures a Manager's resource limits.
type ManagerConfig struct {
	// MaxConcurrentSessions caps how many session actors stay loaded.
	// Zero means DefaultMaxConcurrentSessions.
	MaxConcurrentSessions int
}

func (c ManagerConfig) maxConcurrent() int {
	if c.MaxConcurrentSessions > 0 {
		return c.MaxConcurrentSessions
	}
	return DefaultMaxConcurrentSessions
}

// loadedSession is one entry in the Manager's LRU of active actors.
type loadedSession struct {
	actor  *Actor
	cancel context.CancelFunc
	lruEl  *list.Element
}

// WorkspaceFactory builds the workspace handle a newly-activated session
// should use, given the directory its SessionCreated event recorded.
type WorkspaceFactory func(directory string) (workspace.Workspace, error)

// Manager owns the lifecycle of every session in the process: creation,
// hydration from the event log, listing, deletion, and LRU eviction of
// inactive actors once MaxConcurrentSessions is reached. Evicting a
// session drops its actor and broadcast subscribers but never its
// events — a later activate rehydrates identical state from the store.
type Manager struct {
	deps   ActorDeps
	wsFac  WorkspaceFactory
	config ManagerConfig

	mu      sync.Mutex
	loaded  map[types.SessionID]*loadedSession
	lru     *list.List // front = most recently used
	byLruID map[*list.Element]types.SessionID
}

// NewManager creates a Manager. deps are shared across every session
// this process loads; wsFac resolves a session's directory to a
// workspace.Workspace. With a nil wsFac, sessions run with a nil workspace.
func NewManager(deps ActorDeps, wsFac WorkspaceFactory, config ManagerConfig) *Manager {
	return &Manager{
		deps:    deps,
		wsFac:   wsFac,
		config:  config,
		loaded:  make(map[types.SessionID]*loadedSession),
		lru:     list.New(),
		byLruID: make(map[*list.Element]types.SessionID),
	}
}

// CreateSession assigns a new id, records it in the event store, and
// activates it.
func (m *Manager) CreateSession(ctx context.Context, directory string) (*Actor, types.SessionID, error) {
	return m.CreateSessionWithAgent(ctx, directory, nil)
}

// CreateSessionWithAgent is CreateSession with an explicit Agent rather
// than DefaultAgent, for callers spawning a session under a specific
// agent profile (subagent dispatch via the task tool).
func (m *Manager) CreateSessionWithAgent(ctx context.Context, directory string, ag *Agent) (*Actor, types.SessionID, error) {
	id := types.NewSessionID()
	now := time.Now().Unix()
	if err := m.deps.Store.CreateSession(ctx, id, now); err != nil {
		return nil, "", err
	}
	a, err := m.start(ctx, id, directory, NewState(id), ag)
	if err != nil {
		return nil, "", err
	}
	return a, id, nil
}

// Activate returns the actor for id, hydrating it from the event store
// (replaying and folding every event into a fresh State) if it is not
// already loaded.
func (m *Manager) Activate(ctx context.Context, id types.SessionID, directory string) (*Actor, error) {
	m.mu.Lock()
	if ls, ok := m.loaded[id]; ok {
		m.lru.MoveToFront(ls.lruEl)
		m.mu.Unlock()
		return ls.actor, nil
	}
	m.mu.Unlock()

	exists, err := m.deps.Store.SessionExists(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("session: %s not found", id)
	}

	events, err := m.deps.Store.Load(ctx, id, 0)
	if err != nil {
		return nil, err
	}
	state, err := LoadState(id, events)
	if err != nil {
		return nil, err
	}

	return m.start(ctx, id, directory, state, nil)
}

func (m *Manager) start(ctx context.Context, id types.SessionID, directory string, state *State, ag *Agent) (*Actor, error) {
	var ws workspace.Workspace
	if m.wsFac != nil {
		var err error
		ws, err = m.wsFac(directory)
		if err != nil {
			return nil, err
		}
	}

	actor := NewActor(id, m.deps, ws, ag, state, directory)
	actorCtx, cancel := context.WithCancel(context.Background())
	go actor.Run(actorCtx)

	m.mu.Lock()
	defer m.mu.Unlock()
	el := m.lru.PushFront(nil)
	m.byLruID[el] = id
	m.loaded[id] = &loadedSession{actor: actor, cancel: cancel, lruEl: el}
	m.evictLocked()
	return actor, nil
}

// evictLocked drops the least-recently-used loaded session beyond the
// configured cap. Must be called with m.mu held.
func (m *Manager) evictLocked() {
	limit := m.config.maxConcurrent()
	for len(m.loaded) > limit {
		back := m.lru.Back()
		if back == nil {
			return
		}
		id := m.byLruID[back]
		if ls, ok := m.loaded[id]; ok {
			ls.cancel()
			ls.actor.Stop()
		}
		delete(m.loaded, id)
		delete(m.byLruID, back)
		m.lru.Remove(back)
	}
}

// DeleteSession aborts the session's actor (if loaded) and removes it
// from the event store entirely.
func (m *Manager) DeleteSession(ctx context.Context, id types.SessionID) error {
	m.mu.Lock()
	if ls, ok := m.loaded[id]; ok {
		ls.cancel()
		ls.actor.Stop()
		delete(m.loaded, id)
		m.lru.Remove(ls.lruEl)
		delete(m.byLruID, ls.lruEl)
	}
	m.mu.Unlock()

	return m.deps.Store.DeleteSession(ctx, id)
}

// ListSessions returns every session's store-level metadata, most
// recently updated first.
func (m *Manager) ListSessions(ctx context.Context) ([]eventstore.SessionMeta, error) {
	return m.deps.Store.ListSessions(ctx)
}
