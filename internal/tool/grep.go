package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const grepDescription = `A powerful content search tool built on ripgrep.

Usage:
- Supports full regex syntax (e.g., "log.*Error", "function\\s+\\w+")
- Filter files with the include parameter (e.g., "*.js", "**/*.tsx")
- Returns matching lines with file paths and line numbers`

const maxGrepMatches = 100

// GrepTool implements content search, shelling out to ripgrep through the
// workspace so it works identically against a local or remote backend.
type GrepTool struct{}

// NewGrepTool creates a new grep tool.
func NewGrepTool() *GrepTool { return &GrepTool{} }

// GrepInput represents the input for the grep tool.
type GrepInput struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path,omitempty"`
	Include string `json:"include,omitempty"`
}

func (t *GrepTool) ID() string              { return "grep" }
func (t *GrepTool) Description() string     { return grepDescription }
func (t *GrepTool) Capabilities() Capability { return CapWorkspace }

func (t *GrepTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"pattern": {
				"type": "string",
				"description": "The regex pattern to search for in file contents"
			},
			"path": {
				"type": "string",
				"description": "The directory to search in. Defaults to the current working directory."
			},
			"include": {
				"type": "string",
				"description": "File pattern to include in the search (e.g. \"*.js\", \"*.{ts,tsx}\")"
			}
		},
		"required": ["pattern"]
	}`)
}

func (t *GrepTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params GrepInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("grep: invalid input: %w", err)
	}
	if toolCtx == nil || toolCtx.Workspace == nil {
		return nil, fmt.Errorf("grep: no workspace in context")
	}

	searchPath := params.Path
	if searchPath == "" {
		searchPath = "."
	}

	var cmd strings.Builder
	cmd.WriteString("rg --line-number --with-filename --color=never")
	if params.Include != "" {
		fmt.Fprintf(&cmd, " --glob %s", shellQuote(params.Include))
	}
	fmt.Fprintf(&cmd, " -- %s %s", shellQuote(params.Pattern), shellQuote(searchPath))

	stdout, _, _, _, err := toolCtx.Workspace.RunCommand(ctx, cmd.String(), 30*time.Second)
	if err != nil {
		return errorResult("Search results", err.Error(), false), nil
	}

	matches, truncated := parseGrepOutput(stdout, maxGrepMatches)

	return &Result{
		Title: fmt.Sprintf("Found %d matches", len(matches)),
		Value: types.ToolResult{Kind: types.ToolResultSearch, Search: &types.SearchResult{
			Pattern:   params.Pattern,
			Matches:   matches,
			Truncated: truncated,
		}},
		Metadata: map[string]any{"pattern": params.Pattern, "count": len(matches)},
	}, nil
}

func parseGrepOutput(output string, limit int) ([]types.SearchMatch, bool) {
	var matches []types.SearchMatch
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 3)
		if len(parts) < 3 {
			continue
		}
		lineNum, _ := strconv.Atoi(parts[1])
		matches = append(matches, types.SearchMatch{Path: strings.TrimPrefix(parts[0], "./"), Line: lineNum, Snippet: parts[2]})
	}
	truncated := false
	if len(matches) > limit {
		matches = matches[:limit]
		truncated = true
	}
	return matches, truncated
}

// shellQuote wraps s in single quotes for safe inclusion in a shell
// command line built by the grep and list tools.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (t *GrepTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
