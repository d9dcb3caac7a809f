package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

func newTestBatchRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewReadTool())
	r.Register(NewBashTool())
	r.Register(NewEditTool())
	r.Register(NewTodoReadTool(nil))
	return r
}

func TestBatchTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "a.txt"), []byte("hello"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir), ToolCallID: "call-1"}

	readParams, _ := json.Marshal(ReadInput{FilePath: "a.txt"})
	bashParams, _ := json.Marshal(BashInput{Command: "echo hi", Description: "greet"})

	input, _ := json.Marshal(BatchInput{ToolCalls: []BatchCall{
		{Tool: "read", Parameters: readParams},
		{Tool: "bash", Parameters: bashParams},
	}})

	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value.Kind != types.ToolResultExternal {
		t.Fatalf("expected external result, got %s", result.Value.Kind)
	}
	if result.Metadata["successful"] != 2 {
		t.Errorf("Expected 2 successful calls, got %v", result.Metadata["successful"])
	}
	if result.Metadata["failed"] != 0 {
		t.Errorf("Expected 0 failed calls, got %v", result.Metadata["failed"])
	}
}

func TestBatchTool_PartialFailure(t *testing.T) {
	tmpDir := t.TempDir()
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir), ToolCallID: "call-1"}

	readParams, _ := json.Marshal(ReadInput{FilePath: "nonexistent.txt"})
	bashParams, _ := json.Marshal(BashInput{Command: "echo ok", Description: "ok"})

	input, _ := json.Marshal(BatchInput{ToolCalls: []BatchCall{
		{Tool: "read", Parameters: readParams},
		{Tool: "bash", Parameters: bashParams},
	}})

	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["successful"] != 2 {
		t.Errorf("read of a missing file is a tool-level error result, not a batch failure, got successful=%v", result.Metadata["successful"])
	}
}

func TestBatchTool_DisallowedTool(t *testing.T) {
	tmpDir := t.TempDir()
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir), ToolCallID: "call-1"}

	editParams, _ := json.Marshal(EditInput{FilePath: "a.txt", OldString: "a", NewString: "b"})
	input, _ := json.Marshal(BatchInput{ToolCalls: []BatchCall{
		{Tool: "edit", Parameters: editParams},
	}})

	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["failed"] != 1 {
		t.Errorf("Expected edit call to be disallowed and fail, got failed=%v", result.Metadata["failed"])
	}
}

func TestBatchTool_UnknownTool(t *testing.T) {
	tmpDir := t.TempDir()
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir), ToolCallID: "call-1"}

	input, _ := json.Marshal(BatchInput{ToolCalls: []BatchCall{
		{Tool: "nonexistent", Parameters: json.RawMessage(`{}`)},
	}})

	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["failed"] != 1 {
		t.Errorf("Expected unknown tool to fail, got failed=%v", result.Metadata["failed"])
	}
}

func TestBatchTool_EmptyToolCalls(t *testing.T) {
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	toolCtx := &Context{Workspace: workspace.NewLocal(t.TempDir())}

	input, _ := json.Marshal(BatchInput{ToolCalls: []BatchCall{}})
	_, err := tool.Execute(context.Background(), input, toolCtx)
	if err == nil {
		t.Error("Expected error for empty tool_calls")
	}
}

func TestBatchTool_InvalidInput(t *testing.T) {
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	toolCtx := &Context{Workspace: workspace.NewLocal(t.TempDir())}

	input := json.RawMessage(`{invalid json}`)
	_, err := tool.Execute(context.Background(), input, toolCtx)
	if err == nil {
		t.Error("Expected error for invalid JSON input")
	}
}

func TestBatchTool_MaxBatchSizeExceeded(t *testing.T) {
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	toolCtx := &Context{Workspace: workspace.NewLocal(t.TempDir()), ToolCallID: "call-1"}

	bashParams, _ := json.Marshal(BashInput{Command: "true", Description: "noop"})
	calls := make([]BatchCall, 12)
	for i := range calls {
		calls[i] = BatchCall{Tool: "bash", Parameters: bashParams}
	}

	input, _ := json.Marshal(BatchInput{ToolCalls: calls})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["totalCalls"] != 12 {
		t.Errorf("Expected 12 total calls recorded (10 run + 2 discarded), got %v", result.Metadata["totalCalls"])
	}
	if result.Metadata["failed"].(int) < 2 {
		t.Errorf("Expected at least 2 failures from discarded calls, got %v", result.Metadata["failed"])
	}
}

func TestBatchTool_Properties(t *testing.T) {
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)

	if tool.ID() != "batch" {
		t.Errorf("Expected ID 'batch', got %q", tool.ID())
	}
	if tool.Capabilities() != CapWorkspace {
		t.Error("batch tool should require CapWorkspace")
	}
}

func TestBatchTool_EinoTool(t *testing.T) {
	registry := newTestBatchRegistry()
	tool := NewBatchTool(registry)
	einoTool := tool.EinoTool()
	if einoTool == nil {
		t.Fatal("EinoTool should not return nil")
	}

	info, err := einoTool.Info(context.Background())
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Name != "batch" {
		t.Errorf("Expected name 'batch', got %q", info.Name)
	}
}
