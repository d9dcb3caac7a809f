package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const listDescription = `Lists files and directories in a specified path.

Usage:
- Returns file names, types (file/directory), and sizes
- Accepts an optional query to fuzzy-rank entries by similarity
- Useful for exploring directory structure`

const maxListEntries = 500

// ListTool implements directory listing.
type ListTool struct{}

// NewListTool creates a new list tool.
func NewListTool() *ListTool { return &ListTool{} }

// ListInput represents the input for the list tool.
type ListInput struct {
	Path   string   `json:"path,omitempty"`
	Query  string   `json:"query,omitempty"`
	Ignore []string `json:"ignore,omitempty"`
}

func (t *ListTool) ID() string              { return "list" }
func (t *ListTool) Description() string     { return listDescription }
func (t *ListTool) Capabilities() Capability { return CapWorkspace }

func (t *ListTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The directory to list (default: workspace root)"
			},
			"query": {
				"type": "string",
				"description": "Optional text to fuzzy-rank entries against"
			},
			"ignore": {
				"type": "array",
				"items": {"type": "string"},
				"description": "List of glob patterns to ignore"
			}
		}
	}`)
}

func (t *ListTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ListInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("list: invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Workspace == nil {
		return nil, fmt.Errorf("list: no workspace in context")
	}

	root := params.Path
	if root == "" {
		root = "."
	}

	entries, truncated, err := toolCtx.Workspace.ListFiles(ctx, root, params.Query, params.Ignore, maxListEntries)
	if err != nil {
		return errorResult("Listed directory", err.Error(), false), nil
	}

	out := make([]types.FileListEntry, len(entries))
	for i, e := range entries {
		out[i] = types.FileListEntry{Path: e.Path, IsDir: e.IsDir, Size: e.Size}
	}

	return &Result{
		Title: fmt.Sprintf("Listed %d items", len(out)),
		Value: types.ToolResult{Kind: types.ToolResultFileList, FileList: &types.FileListResult{
			Root:      root,
			Entries:   out,
			Truncated: truncated,
		}},
		Metadata: map[string]any{"path": root, "count": len(out)},
	}, nil
}

func (t *ListTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
