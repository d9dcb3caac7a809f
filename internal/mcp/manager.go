package mcp

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// SessionManager owns one MCP Client per session and pushes the client's
// wrapped tool set into a tool.Resolver overlay every time it changes,
// stamped with a monotonically increasing generation so a slow reconnect
// can never clobber a tool set from a newer one.
type SessionManager struct {
	resolver *tool.Resolver
	configs  map[string]*Config

	mu       sync.Mutex
	clients  map[types.SessionID]*Client
	nextGen  atomic.Uint64
}

// NewSessionManager creates a manager that pushes MCP tool overlays into
// resolver, connecting servers per the given configs on demand.
func NewSessionManager(resolver *tool.Resolver, configs map[string]*Config) *SessionManager {
	return &SessionManager{
		resolver: resolver,
		configs:  configs,
		clients:  make(map[types.SessionID]*Client),
	}
}

// StartSession connects a fresh client for sessionID and installs its tool
// overlay. Safe to call once per session; calling it again replaces the
// client and bumps the generation so the new overlay wins.
func (m *SessionManager) StartSession(ctx context.Context, sessionID types.SessionID) error {
	client := NewClient()
	for name, cfg := range m.configs {
		if err := client.AddServer(ctx, name, cfg); err != nil {
			// Non-fatal: a single failed server shouldn't block the others;
			// its status is recorded and surfaced via Client.Status().
			continue
		}
	}

	m.mu.Lock()
	if old, ok := m.clients[sessionID]; ok {
		old.Close()
	}
	m.clients[sessionID] = client
	m.mu.Unlock()

	gen := m.nextGen.Add(1)
	m.resolver.SetSessionTools(sessionID, gen, WrapTools(client))
	return nil
}

// Refresh re-lists tools on the session's existing client (e.g. after a
// server reconnect) and republishes the overlay under a new generation.
func (m *SessionManager) Refresh(sessionID types.SessionID) {
	m.mu.Lock()
	client, ok := m.clients[sessionID]
	m.mu.Unlock()
	if !ok {
		return
	}

	gen := m.nextGen.Add(1)
	m.resolver.SetSessionTools(sessionID, gen, WrapTools(client))
}

// Status returns the MCP server statuses for a session, or nil if the
// session has no MCP client.
func (m *SessionManager) Status(sessionID types.SessionID) []ServerStatus {
	m.mu.Lock()
	client, ok := m.clients[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return client.Status()
}

// AddServer connects one additional MCP backend for an already-started
// session (e.g. in response to a RegisterMcpBackend command) and
// republishes the tool overlay under a new generation.
func (m *SessionManager) AddServer(ctx context.Context, sessionID types.SessionID, name string, cfg *Config) error {
	m.mu.Lock()
	client, ok := m.clients[sessionID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("mcp: session %s has no client; call StartSession first", sessionID)
	}
	if err := client.AddServer(ctx, name, cfg); err != nil {
		return err
	}
	m.Refresh(sessionID)
	return nil
}

// RemoveServer disconnects one MCP backend for a session (e.g. in
// response to an UnregisterMcpBackend command) and republishes the tool
// overlay under a new generation.
func (m *SessionManager) RemoveServer(sessionID types.SessionID, name string) error {
	m.mu.Lock()
	client, ok := m.clients[sessionID]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("mcp: session %s has no client", sessionID)
	}
	if err := client.RemoveServer(name); err != nil {
		return err
	}
	m.Refresh(sessionID)
	return nil
}

// EndSession disconnects the session's MCP servers and clears its overlay.
func (m *SessionManager) EndSession(sessionID types.SessionID) {
	m.mu.Lock()
	client, ok := m.clients[sessionID]
	delete(m.clients, sessionID)
	m.mu.Unlock()

	if ok {
		client.Close()
	}
	m.resolver.ClearSession(sessionID)
}
