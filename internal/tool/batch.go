// Package tool provides the batch tool for parallel tool execution.
package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"golang.org/x/sync/errgroup"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const batchDescription = `Executes multiple independent tool calls concurrently to reduce latency. Best used for gathering context (reads, searches, listings).

Payload Format (JSON array):
[{"tool": "read", "parameters": {"filePath": "src/index.ts", "limit": 350}},{"tool": "grep", "parameters": {"pattern": "Session\\.updatePart", "glob": "**/*.ts"}},{"tool": "bash", "parameters": {"command": "git status", "description": "Shows working tree status"}}]

Rules:
- 1-10 tool calls per batch
- All calls start in parallel; ordering NOT guaranteed
- Partial failures do not stop others

Disallowed Tools:
- batch (no nesting)
- edit (run edits separately)
- todoread (call directly - lightweight)

When NOT to Use:
- Operations that depend on prior tool output (e.g. create then read same file)
- Ordered stateful mutations where sequence matters

Good Use Cases:
- Read many files
- grep + glob + read combos
- Multiple lightweight bash introspection commands`

const maxBatchSize = 10

var disallowedTools = map[string]bool{
	"batch":    true,
	"edit":     true,
	"todoread": true,
}

var filteredFromSuggestions = map[string]bool{
	"batch":    true,
	"edit":     true,
	"todoread": true,
}

// BatchTool implements parallel tool execution over the static registry.
type BatchTool struct {
	registry *Registry
}

// BatchInput represents the input for the batch tool.
type BatchInput struct {
	ToolCalls []BatchCall `json:"tool_calls"`
}

// BatchCall represents a single tool call within a batch.
type BatchCall struct {
	Tool       string          `json:"tool"`
	Parameters json.RawMessage `json:"parameters"`
}

// batchCallResult is the outcome of a single call within a batch, before
// being folded into the aggregate Result.
type batchCallResult struct {
	Index   int
	Tool    string
	Success bool
	Result  *Result
	Error   string
	Time    time.Duration
}

// NewBatchTool creates a new batch tool over the given registry.
func NewBatchTool(registry *Registry) *BatchTool {
	return &BatchTool{registry: registry}
}

func (t *BatchTool) ID() string              { return "batch" }
func (t *BatchTool) Description() string     { return batchDescription }
func (t *BatchTool) Capabilities() Capability { return CapWorkspace }

func (t *BatchTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"tool_calls": {
				"type": "array",
				"description": "Array of tool calls to execute in parallel",
				"items": {
					"type": "object",
					"properties": {
						"tool": {
							"type": "string",
							"description": "The name of the tool to execute"
						},
						"parameters": {
							"type": "object",
							"description": "Parameters for the tool"
						}
					},
					"required": ["tool", "parameters"]
				},
				"minItems": 1
			}
		},
		"required": ["tool_calls"]
	}`)
}

func (t *BatchTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params BatchInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("batch: invalid input: %w", err)
	}
	if len(params.ToolCalls) == 0 {
		return nil, fmt.Errorf("batch: tool_calls array must contain at least one tool call")
	}

	calls := params.ToolCalls
	var discarded []BatchCall
	if len(calls) > maxBatchSize {
		discarded = calls[maxBatchSize:]
		calls = calls[:maxBatchSize]
	}

	available := t.availableToolsList()

	results := make([]*batchCallResult, len(calls))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for i, call := range calls {
		i, call := i, call
		g.Go(func() error {
			r := t.executeCall(gctx, i, call, toolCtx, available)
			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for i, call := range discarded {
		results = append(results, &batchCallResult{
			Index: maxBatchSize + i,
			Tool:  call.Tool,
			Error: "maximum of 10 tools allowed in batch",
		})
	}

	return t.formatResults(results, params.ToolCalls), nil
}

func (t *BatchTool) executeCall(ctx context.Context, index int, call BatchCall, toolCtx *Context, available []string) *batchCallResult {
	start := time.Now()
	r := &batchCallResult{Index: index, Tool: call.Tool}
	defer func() { r.Time = time.Since(start) }()

	if disallowedTools[call.Tool] {
		r.Error = fmt.Sprintf("tool %q is not allowed in batch: %s", call.Tool, strings.Join(disallowedToolsList(), ", "))
		return r
	}

	tl, ok := t.registry.Get(call.Tool)
	if !ok {
		r.Error = fmt.Sprintf("tool %q not found; available: %s", call.Tool, strings.Join(available, ", "))
		return r
	}

	callCtx := &Context{
		SessionID:  toolCtx.SessionID,
		OpID:       toolCtx.OpID,
		ToolCallID: types.ToolCallID(fmt.Sprintf("%s-batch-%d", toolCtx.ToolCallID, index)),
		Agent:      toolCtx.Agent,
		Workspace:  toolCtx.Workspace,
		AbortCh:    toolCtx.AbortCh,
		Extra:      toolCtx.Extra,
	}

	result, err := tl.Execute(ctx, call.Parameters, callCtx)
	if err != nil {
		r.Error = err.Error()
		return r
	}

	r.Success = true
	r.Result = result
	return r
}

func (t *BatchTool) formatResults(results []*batchCallResult, originalCalls []BatchCall) *Result {
	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })

	successCount := 0
	var outputParts []string
	details := make([]map[string]any, 0, len(results))

	for _, r := range results {
		detail := map[string]any{
			"tool":    r.Tool,
			"success": r.Success,
			"timeMs":  r.Time.Milliseconds(),
		}
		if r.Success && r.Result != nil {
			successCount++
			outputParts = append(outputParts, fmt.Sprintf("=== %s (success) ===\n%s", r.Tool, r.Result.Value.LLMFormat()))
			detail["title"] = r.Result.Title
		} else {
			outputParts = append(outputParts, fmt.Sprintf("=== %s (failed) ===\n%s", r.Tool, r.Error))
			detail["error"] = r.Error
		}
		details = append(details, detail)
	}

	failedCount := len(results) - successCount
	toolNames := make([]string, len(originalCalls))
	for i, call := range originalCalls {
		toolNames[i] = call.Tool
	}

	return &Result{
		Title: fmt.Sprintf("Batch execution (%d/%d successful)", successCount, len(results)),
		Value: types.ToolResult{Kind: types.ToolResultExternal, External: &types.ExternalResult{
			ServerName: "batch",
			ToolName:   "batch",
			Text:       strings.Join(outputParts, "\n\n"),
			IsError:    failedCount > 0,
		}},
		Metadata: map[string]any{
			"totalCalls": len(results),
			"successful": successCount,
			"failed":     failedCount,
			"tools":      toolNames,
			"details":    details,
		},
	}
}

func (t *BatchTool) availableToolsList() []string {
	tools := t.registry.List()
	out := make([]string, 0, len(tools))
	for _, tl := range tools {
		if !filteredFromSuggestions[tl.ID()] {
			out = append(out, tl.ID())
		}
	}
	sort.Strings(out)
	return out
}

func disallowedToolsList() []string {
	out := make([]string, 0, len(disallowedTools))
	for id := range disallowedTools {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (t *BatchTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
