package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const (
	DefaultBashTimeout = 120 * time.Second
	MaxBashTimeout     = 10 * time.Minute
	MaxOutputLength    = 30000
)

const bashDescription = `Executes a shell command in the workspace.

Usage:
- Command is required
- Optional timeout in milliseconds (max 600000)
- Provide a brief description of what the command does
- Output is captured from stdout and stderr separately`

// BashTool runs a shell command against the session's workspace.
// Approval gating (whether a given command needs user sign-off before
// running) is the executor's concern, not the tool's; BashTool only
// executes once the executor has cleared it.
type BashTool struct{}

// NewBashTool creates a new bash tool.
func NewBashTool() *BashTool { return &BashTool{} }

// BashInput represents the input for the bash tool.
type BashInput struct {
	Command     string `json:"command"`
	Timeout     int    `json:"timeout,omitempty"` // milliseconds
	Description string `json:"description"`
}

func (t *BashTool) ID() string              { return "bash" }
func (t *BashTool) Description() string     { return bashDescription }
func (t *BashTool) Capabilities() Capability { return CapWorkspace }

func (t *BashTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {
				"type": "string",
				"description": "The command to execute"
			},
			"timeout": {
				"type": "integer",
				"description": "Optional timeout in milliseconds (max 600000)"
			},
			"description": {
				"type": "string",
				"description": "Brief description of what this command does"
			}
		},
		"required": ["command", "description"]
	}`)
}

func (t *BashTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params BashInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("bash: invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Workspace == nil {
		return nil, fmt.Errorf("bash: no workspace in context")
	}

	timeout := DefaultBashTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Millisecond
		if timeout > MaxBashTimeout {
			timeout = MaxBashTimeout
		}
	}

	title := params.Description
	if title == "" {
		title = "Run command"
	}
	toolCtx.SetMetadata(title, map[string]any{"description": params.Description})

	stdout, stderr, exitCode, timedOut, err := toolCtx.Workspace.RunCommand(ctx, params.Command, timeout)
	if err != nil {
		return errorResult(title, err.Error(), false), nil
	}

	stdout = truncate(stdout, MaxOutputLength)
	stderr = truncate(stderr, MaxOutputLength)

	return &Result{
		Title: title,
		Value: types.ToolResult{Kind: types.ToolResultBash, Bash: &types.BashResult{
			Command:  params.Command,
			Stdout:   stdout,
			Stderr:   stderr,
			ExitCode: exitCode,
			TimedOut: timedOut,
		}},
		Metadata: map[string]any{"exit": exitCode, "description": params.Description},
	}, nil
}

func (t *BashTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n\n(Output truncated)"
}
