package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

func TestReadTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	content := "Line 1\nLine 2\nLine 3\n"
	if err := os.WriteFile(testFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir)}

	input, _ := json.Marshal(ReadInput{FilePath: "test.txt"})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value.Kind != types.ToolResultFileContent {
		t.Fatalf("expected file content result, got %s", result.Value.Kind)
	}
	if !strings.Contains(result.Value.FileContent.Content, "Line 1") {
		t.Error("Content should contain 'Line 1'")
	}
	if !strings.Contains(result.Value.FileContent.Content, "Line 2") {
		t.Error("Content should contain 'Line 2'")
	}
}

func TestReadTool_FileNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir)}

	input, _ := json.Marshal(ReadInput{FilePath: "nonexistent.txt"})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute returned infra error: %v", err)
	}
	if result.Value.Kind != types.ToolResultError {
		t.Error("Expected error result for nonexistent file")
	}
}

func TestReadTool_WithOffsetAndLimit(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "lines.txt")
	var lines []string
	for i := 1; i <= 10; i++ {
		lines = append(lines, fmt.Sprintf("Line %d", i))
	}
	if err := os.WriteFile(testFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir)}

	input, _ := json.Marshal(ReadInput{FilePath: "lines.txt", Offset: 3, Limit: 3})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Value.FileContent.Content, "Line 3") {
		t.Error("Content should contain 'Line 3'")
	}
}

func TestReadTool_Properties(t *testing.T) {
	tool := NewReadTool()

	if tool.ID() != "read" {
		t.Errorf("Expected ID 'read', got %q", tool.ID())
	}
	if !strings.Contains(tool.Description(), "file") {
		t.Error("Description should mention 'file'")
	}
	if tool.Capabilities() != CapWorkspace {
		t.Error("read tool should require CapWorkspace")
	}

	params := tool.Parameters()
	var schema map[string]any
	if err := json.Unmarshal(params, &schema); err != nil {
		t.Errorf("Parameters should be valid JSON: %v", err)
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("Schema should have properties")
	}
	if _, ok := props["filePath"]; !ok {
		t.Error("Schema should have filePath property")
	}
}

func TestReadTool_EnvFileBlocked(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("SECRET=value"), 0644); err != nil {
		t.Fatalf("Failed to create .env file: %v", err)
	}

	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir)}

	input, _ := json.Marshal(ReadInput{FilePath: ".env"})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value.Kind != types.ToolResultError {
		t.Fatal("Expected error result when reading .env file")
	}
	if !strings.Contains(result.Value.Error.Message, ".env") {
		t.Errorf("Error should mention .env files, got: %v", result.Value.Error.Message)
	}
}

func TestReadTool_DirectoryError(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir)}

	input, _ := json.Marshal(ReadInput{FilePath: "."})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value.Kind != types.ToolResultError {
		t.Error("Expected error result when reading a directory")
	}
}

func TestReadTool_ImageFile(t *testing.T) {
	tmpDir := t.TempDir()
	pngSignature := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	if err := os.WriteFile(filepath.Join(tmpDir, "test.png"), pngSignature, 0644); err != nil {
		t.Fatalf("Failed to create PNG file: %v", err)
	}

	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir)}

	input, _ := json.Marshal(ReadInput{FilePath: "test.png"})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if len(result.Attachments) == 0 {
		t.Fatal("Image file should have attachments")
	}
	att := result.Attachments[0]
	if att.MediaType != "image/png" {
		t.Errorf("Expected media type 'image/png', got %q", att.MediaType)
	}
	if !strings.HasPrefix(att.URL, "data:image/png;base64,") {
		t.Error("Attachment URL should be a data URL")
	}
}

func TestReadTool_InvalidInput(t *testing.T) {
	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(t.TempDir())}

	input := json.RawMessage(`{invalid json}`)
	_, err := tool.Execute(context.Background(), input, toolCtx)
	if err == nil {
		t.Error("Expected error for invalid JSON input")
	}
}

func TestReadTool_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, "empty.txt"), []byte{}, 0644); err != nil {
		t.Fatalf("Failed to create empty file: %v", err)
	}

	tool := NewReadTool()
	toolCtx := &Context{Workspace: workspace.NewLocal(tmpDir)}

	input, _ := json.Marshal(ReadInput{FilePath: "empty.txt"})
	result, err := tool.Execute(context.Background(), input, toolCtx)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Value.FileContent.Content != "" {
		t.Errorf("Expected empty content, got %q", result.Value.FileContent.Content)
	}
}

func TestReadTool_MissingWorkspace(t *testing.T) {
	tool := NewReadTool()
	input, _ := json.Marshal(ReadInput{FilePath: "x.txt"})
	_, err := tool.Execute(context.Background(), input, &Context{})
	if err == nil {
		t.Error("expected error with no workspace")
	}
}

func TestReadTool_EinoTool(t *testing.T) {
	tool := NewReadTool()
	einoTool := tool.EinoTool()
	if einoTool == nil {
		t.Fatal("EinoTool should not return nil")
	}

	info, err := einoTool.Info(context.Background())
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Name != "read" {
		t.Errorf("Expected name 'read', got %q", info.Name)
	}
}
