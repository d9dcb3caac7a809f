package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/formatter"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const writeDescription = `Writes content to a file in the workspace.

Usage:
- The file_path parameter must be an absolute path
- This tool will overwrite existing files
- Parent directories will be created if they don't exist
- ALWAYS prefer editing existing files over creating new ones`

// WriteTool implements file writing.
type WriteTool struct {
	fmtMgr *formatter.Manager
}

// NewWriteTool creates a new write tool.
func NewWriteTool() *WriteTool { return &WriteTool{} }

// SetFormatter attaches a formatter.Manager run against the local
// filesystem after a successful write, the same way TaskTool's
// executor is wired in post-construction rather than through the
// constructor. nil disables formatting.
func (t *WriteTool) SetFormatter(mgr *formatter.Manager) { t.fmtMgr = mgr }

// WriteInput represents the input for the write tool.
type WriteInput struct {
	FilePath string `json:"filePath"`
	Content  string `json:"content"`
}

func (t *WriteTool) ID() string              { return "write" }
func (t *WriteTool) Description() string     { return writeDescription }
func (t *WriteTool) Capabilities() Capability { return CapWorkspace }

func (t *WriteTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to write"
			},
			"content": {
				"type": "string",
				"description": "The content to write to the file"
			}
		},
		"required": ["filePath", "content"]
	}`)
}

func (t *WriteTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params WriteInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("write: invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Workspace == nil {
		return nil, fmt.Errorf("write: no workspace in context")
	}

	title := fmt.Sprintf("Wrote %s", filepath.Base(params.FilePath))

	before, _, readErr := toolCtx.Workspace.ReadFile(ctx, params.FilePath, 0, 0)
	created := readErr != nil

	if err := toolCtx.Workspace.WriteFile(ctx, params.FilePath, params.Content); err != nil {
		return errorResult(title, err.Error(), false), nil
	}

	finalContent := params.Content
	if t.fmtMgr != nil {
		if _, err := t.fmtMgr.Format(ctx, params.FilePath); err == nil {
			if after, _, err := toolCtx.Workspace.ReadFile(ctx, params.FilePath, 0, 0); err == nil {
				finalContent = after
			}
		}
	}

	diffText, added, removed := buildDiffMetadata(params.FilePath, before, finalContent, "")

	return &Result{
		Title: title,
		Value: types.ToolResult{Kind: types.ToolResultEdit, Edit: &types.EditResult{
			Path:         params.FilePath,
			UnifiedDiff:  diffText,
			Created:      created,
			LinesAdded:   added,
			LinesRemoved: removed,
		}},
		Metadata: map[string]any{"file": params.FilePath, "bytes": len(params.Content)},
	}, nil
}

func (t *WriteTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
