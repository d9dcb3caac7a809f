package tool

import (
	"context"
	"encoding/json"
	"testing"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/agent"
	"github.com/BrendanGraham14/steer-sub008/internal/storage"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// mockTool implements Tool for testing.
type mockTool struct {
	id          string
	description string
	params      json.RawMessage
	caps        Capability
}

func (m *mockTool) ID() string                  { return m.id }
func (m *mockTool) Description() string         { return m.description }
func (m *mockTool) Parameters() json.RawMessage { return m.params }
func (m *mockTool) Capabilities() Capability    { return m.caps }
func (m *mockTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	return &Result{Value: types.ToolResult{Kind: types.ToolResultError, Error: &types.ErrorResult{Message: "mock result"}}}, nil
}
func (m *mockTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: m}
}

func newMockTool(id, description string) *mockTool {
	return &mockTool{
		id:          id,
		description: description,
		params:      json.RawMessage(`{"type": "object", "properties": {}}`),
	}
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	registry := NewRegistry()

	tool := newMockTool("test_tool", "A test tool")
	registry.Register(tool)

	got, ok := registry.Get("test_tool")
	if !ok {
		t.Fatal("Tool not found")
	}
	if got.ID() != "test_tool" {
		t.Errorf("Got tool ID %q, want 'test_tool'", got.ID())
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.Get("nonexistent")
	if ok {
		t.Error("Expected tool not to be found")
	}
}

func TestRegistry_List(t *testing.T) {
	registry := NewRegistry()

	registry.Register(newMockTool("tool1", "Tool 1"))
	registry.Register(newMockTool("tool2", "Tool 2"))
	registry.Register(newMockTool("tool3", "Tool 3"))

	tools := registry.List()
	if len(tools) != 3 {
		t.Errorf("Expected 3 tools, got %d", len(tools))
	}
}

func TestRegistry_IDs(t *testing.T) {
	registry := NewRegistry()

	registry.Register(newMockTool("alpha", "Alpha"))
	registry.Register(newMockTool("beta", "Beta"))

	ids := registry.IDs()
	if len(ids) != 2 {
		t.Errorf("Expected 2 IDs, got %d", len(ids))
	}

	idSet := make(map[string]bool)
	for _, id := range ids {
		idSet[id] = true
	}
	if !idSet["alpha"] || !idSet["beta"] {
		t.Error("Expected 'alpha' and 'beta' in IDs")
	}
}

func TestRegistry_EinoTools(t *testing.T) {
	registry := NewRegistry()

	registry.Register(newMockTool("tool1", "Tool 1"))
	registry.Register(newMockTool("tool2", "Tool 2"))

	einoTools := registry.EinoTools()
	if len(einoTools) != 2 {
		t.Errorf("Expected 2 Eino tools, got %d", len(einoTools))
	}
}

func TestRegistry_Filter(t *testing.T) {
	registry := NewRegistry()

	net := newMockTool("net-tool", "needs network")
	net.caps = CapNetwork
	ws := newMockTool("ws-tool", "needs workspace")
	ws.caps = CapWorkspace

	registry.Register(net)
	registry.Register(ws)

	onlyWorkspace := registry.Filter(CapWorkspace)
	if len(onlyWorkspace) != 1 || onlyWorkspace[0].ID() != "ws-tool" {
		t.Errorf("expected only ws-tool, got %v", onlyWorkspace)
	}

	both := registry.Filter(CapWorkspace | CapNetwork)
	if len(both) != 2 {
		t.Errorf("expected both tools, got %d", len(both))
	}
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry(storage.New(t.TempDir()), agent.NewRegistry())

	expectedTools := []string{"read", "write", "edit", "bash", "glob", "grep", "list"}

	for _, name := range expectedTools {
		_, ok := registry.Get(name)
		if !ok {
			t.Errorf("Expected tool %q to be registered", name)
		}
	}

	tools := registry.List()
	if len(tools) < len(expectedTools) {
		t.Errorf("Expected at least %d tools, got %d", len(expectedTools), len(tools))
	}
}

func TestRegistry_ReplaceExisting(t *testing.T) {
	registry := NewRegistry()

	registry.Register(newMockTool("mytool", "Original description"))
	registry.Register(newMockTool("mytool", "New description"))

	got, _ := registry.Get("mytool")
	if got.Description() != "New description" {
		t.Errorf("Expected 'New description', got %q", got.Description())
	}

	tools := registry.List()
	if len(tools) != 1 {
		t.Errorf("Expected 1 tool after replacement, got %d", len(tools))
	}
}

func TestResolver_OverlayShadowsStatic(t *testing.T) {
	static := NewRegistry()
	static.Register(newMockTool("shared", "static version"))

	resolver := NewResolver(static)
	overlayTool := newMockTool("shared", "mcp version")
	resolver.SetSessionTools("sess-1", 1, []Tool{overlayTool})

	got, ok := resolver.Get("sess-1", "shared")
	if !ok {
		t.Fatal("expected shared tool to resolve")
	}
	if got.Description() != "mcp version" {
		t.Errorf("expected overlay to shadow static tool, got %q", got.Description())
	}

	// A different session still sees the static tool.
	got2, ok := resolver.Get("sess-2", "shared")
	if !ok || got2.Description() != "static version" {
		t.Errorf("expected session without overlay to see static tool, got %+v", got2)
	}
}

func TestResolver_StaleGenerationRejected(t *testing.T) {
	static := NewRegistry()
	resolver := NewResolver(static)

	resolver.SetSessionTools("sess-1", 5, []Tool{newMockTool("a", "gen5")})
	if ok := resolver.SetSessionTools("sess-1", 2, []Tool{newMockTool("a", "gen2")}); ok {
		t.Error("expected stale generation to be rejected")
	}

	got, _ := resolver.Get("sess-1", "a")
	if got.Description() != "gen5" {
		t.Errorf("expected gen5 to survive stale write, got %q", got.Description())
	}
}

func TestResolver_ClearSession(t *testing.T) {
	static := NewRegistry()
	resolver := NewResolver(static)
	resolver.SetSessionTools("sess-1", 1, []Tool{newMockTool("a", "overlay")})
	resolver.ClearSession("sess-1")

	if _, ok := resolver.Get("sess-1", "a"); ok {
		t.Error("expected overlay tool to be gone after ClearSession")
	}
}
