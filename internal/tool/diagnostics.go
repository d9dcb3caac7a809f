package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/lsp"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const diagnosticsDescription = `Reports compiler/linter diagnostics for a file via its language server.

Usage:
- The filePath parameter must be an absolute path
- Spawns (or reuses) a language server for the file's extension and
  waits briefly for it to publish diagnostics
- Returns an error result if no language server is available for the
  file, and an empty list if the server reports no issues in time`

// DiagnosticsTool reports LSP diagnostics for a file, backed by an
// internal/lsp.Client. Unlike the other workspace tools it talks to a
// locally spawned language server process directly rather than through
// the Workspace interface, so it only produces results against a local
// backend.
type DiagnosticsTool struct {
	lsp *lsp.Client
}

// NewDiagnosticsTool creates a diagnostics tool backed by client. A nil
// client is never registered by DefaultRegistry; callers that build
// their own registry should skip this tool rather than pass nil.
func NewDiagnosticsTool(client *lsp.Client) *DiagnosticsTool {
	return &DiagnosticsTool{lsp: client}
}

// DiagnosticsInput represents the input for the diagnostics tool.
type DiagnosticsInput struct {
	FilePath string `json:"filePath"`
}

func (t *DiagnosticsTool) ID() string              { return "diagnostics" }
func (t *DiagnosticsTool) Description() string     { return diagnosticsDescription }
func (t *DiagnosticsTool) Capabilities() Capability { return CapWorkspace }

func (t *DiagnosticsTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"filePath": {
				"type": "string",
				"description": "The absolute path to the file to check"
			}
		},
		"required": ["filePath"]
	}`)
}

func (t *DiagnosticsTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params DiagnosticsInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("diagnostics: invalid input: %w", err)
	}
	if t.lsp == nil || t.lsp.IsDisabled() {
		return errorResult("Diagnostics", "no language server available", false), nil
	}

	diags, err := t.lsp.Diagnostics(ctx, params.FilePath)
	if err != nil {
		return errorResult("Diagnostics", err.Error(), true), nil
	}

	payload, err := json.Marshal(diags)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: marshal result: %w", err)
	}

	return &Result{
		Title: fmt.Sprintf("%d diagnostic(s)", len(diags)),
		Value: types.ToolResult{Kind: types.ToolResultExternal, External: &types.ExternalResult{
			ServerName: "lsp",
			ToolName:   "diagnostics",
			Content:    payload,
		}},
		Metadata: map[string]any{"file": params.FilePath, "count": len(diags)},
	}, nil
}

func (t *DiagnosticsTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
