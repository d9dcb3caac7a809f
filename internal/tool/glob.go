package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const globDescription = `Fast file pattern matching tool that works with any codebase size.

Usage:
- Supports glob patterns like "**/*.js" or "src/**/*.ts"
- Returns matching file paths, sorted
- Use this tool when you need to find files by name patterns`

const maxGlobMatches = 100

// GlobTool implements file pattern matching against the workspace.
type GlobTool struct{}

// NewGlobTool creates a new glob tool.
func NewGlobTool() *GlobTool { return &GlobTool{} }

// GlobInput represents the input for the glob tool.
type GlobInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
}

func (t *GlobTool) ID() string              { return "glob" }
func (t *GlobTool) Description() string     { return globDescription }
func (t *GlobTool) Capabilities() Capability { return CapWorkspace }

func (t *GlobTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The glob pattern to match files against"
			},
			"path": {
				"type": "string",
				"description": "Directory to search in (default: current directory)"
			}
		},
		"required": ["pattern"]
	}`)
}

func (t *GlobTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params GlobInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("glob: invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Workspace == nil {
		return nil, fmt.Errorf("glob: no workspace in context")
	}

	root := params.Path
	if root == "" {
		root = "."
	}

	matches, truncated, err := toolCtx.Workspace.Glob(ctx, params.Pattern, root, maxGlobMatches)
	if err != nil {
		return errorResult("Glob search", err.Error(), false), nil
	}

	return &Result{
		Title: fmt.Sprintf("Found %d files", len(matches)),
		Value: types.ToolResult{Kind: types.ToolResultGlob, Glob: &types.GlobResult{
			Pattern:   params.Pattern,
			Matches:   matches,
			Truncated: truncated,
		}},
		Metadata: map[string]any{"pattern": params.Pattern, "count": len(matches)},
	}, nil
}

func (t *GlobTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
