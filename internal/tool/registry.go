package tool

import (
	"sort"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/agent"
	"github.com/BrendanGraham14/steer-sub008/internal/lsp"
	"github.com/BrendanGraham14/steer-sub008/internal/storage"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// Registry holds the static set of built-in tools available to every
// session, independent of any particular backend or MCP server.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool to the registry, replacing any existing tool
// with the same ID.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.ID()] = t
}

// Get looks up a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[id]
	return t, ok
}

// List returns all registered tools, sorted by ID.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// IDs returns the IDs of every registered tool.
func (r *Registry) IDs() []string {
	all := r.List()
	ids := make([]string, len(all))
	for i, t := range all {
		ids[i] = t.ID()
	}
	return ids
}

// EinoTools returns the Eino-compatible wrapper for every registered tool.
func (r *Registry) EinoTools() []einotool.InvokableTool {
	all := r.List()
	out := make([]einotool.InvokableTool, len(all))
	for i, t := range all {
		out[i] = t.EinoTool()
	}
	return out
}

// Filter returns the tools whose required capabilities are all present
// in caps, so a backend lacking e.g. CapNetwork never sees webfetch.
func (r *Registry) Filter(caps Capability) []Tool {
	all := r.List()
	out := make([]Tool, 0, len(all))
	for _, t := range all {
		if caps.Has(t.Capabilities()) {
			out = append(out, t)
		}
	}
	return out
}

// DefaultRegistry builds the registry of built-in tools. store backs the
// todo list, agentRegistry backs the task tool's subagent catalog.
func DefaultRegistry(store *storage.Storage, agentRegistry *agent.Registry) *Registry {
	r := NewRegistry()
	r.Register(NewBashTool())
	r.Register(NewReadTool())
	r.Register(NewWriteTool())
	r.Register(NewEditTool())
	r.Register(NewGlobTool())
	r.Register(NewGrepTool())
	r.Register(NewListTool())
	r.Register(NewTodoReadTool(store))
	r.Register(NewTodoWriteTool(store))
	r.Register(NewWebFetchTool())
	r.Register(NewTaskTool(agentRegistry))
	r.Register(NewBatchTool(r))
	return r
}

// RegisterDiagnostics adds the diagnostics tool backed by lspClient. It
// is kept separate from DefaultRegistry because the LSP client is
// heavier to construct (it spawns language server subprocesses
// lazily) and is only wanted when a local workspace is in play.
func (r *Registry) RegisterDiagnostics(lspClient *lsp.Client) {
	r.Register(NewDiagnosticsTool(lspClient))
}

// sessionOverlay is the set of MCP-backed tools visible to one session,
// stamped with the generation it was built from so a resolver call
// racing a reconnect never serves a half-updated view.
type sessionOverlay struct {
	generation uint64
	tools      map[string]Tool
}

// Resolver composes the static built-in registry with a per-session
// overlay of MCP-provided tools. MCP servers can connect, disconnect and
// reconnect independently of the agent loop; the generation counter lets
// a slow overlay rebuild be discarded if a newer one already landed,
// instead of the two racing writes stomping on each other.
type Resolver struct {
	static *Registry

	mu       sync.RWMutex
	overlays map[types.SessionID]*sessionOverlay
}

// NewResolver creates a resolver backed by the given static registry.
func NewResolver(static *Registry) *Resolver {
	return &Resolver{static: static, overlays: make(map[types.SessionID]*sessionOverlay)}
}

// SetSessionTools installs the MCP-backed tool set for a session at the
// given generation. It is a no-op (returning false) if a newer
// generation is already installed for that session.
func (r *Resolver) SetSessionTools(sessionID types.SessionID, generation uint64, tools []Tool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.overlays[sessionID]; ok && existing.generation > generation {
		return false
	}

	byID := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byID[t.ID()] = t
	}
	r.overlays[sessionID] = &sessionOverlay{generation: generation, tools: byID}
	return true
}

// ClearSession drops the overlay for a session, e.g. once it's evicted.
func (r *Resolver) ClearSession(sessionID types.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overlays, sessionID)
}

// Resolve returns every tool visible to a session given the backend's
// capabilities: the capability-filtered static tools, overlaid with the
// session's MCP tools (which can shadow a static tool of the same ID).
func (r *Resolver) Resolve(sessionID types.SessionID, caps Capability) []Tool {
	byID := make(map[string]Tool)
	for _, t := range r.static.Filter(caps) {
		byID[t.ID()] = t
	}

	r.mu.RLock()
	overlay, ok := r.overlays[sessionID]
	r.mu.RUnlock()
	if ok {
		for id, t := range overlay.tools {
			byID[id] = t
		}
	}

	out := make([]Tool, 0, len(byID))
	for _, t := range byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Get resolves a single tool by ID for a session, checking the overlay
// before falling back to the static registry.
func (r *Resolver) Get(sessionID types.SessionID, toolID string) (Tool, bool) {
	r.mu.RLock()
	overlay, ok := r.overlays[sessionID]
	r.mu.RUnlock()
	if ok {
		if t, ok := overlay.tools[toolID]; ok {
			return t, true
		}
	}
	return r.static.Get(toolID)
}
