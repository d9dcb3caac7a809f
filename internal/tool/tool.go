// Package tool provides the tool framework for LLM tool execution: the
// Tool interface, the capability-gated registry, and every built-in
// tool implementation.
package tool

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// Capability is a bit in the set of backend capabilities a tool needs in
// order to run. The resolver uses this to decide which tools are
// available for a given session's backend (a remote, read-only
// workspace might lack CapNetwork or CapAgentSpawner, for instance).
type Capability uint32

const (
	CapWorkspace Capability = 1 << iota
	CapAgentSpawner
	CapModelCaller
	CapNetwork
)

// Has reports whether c includes every bit set in want.
func (c Capability) Has(want Capability) bool {
	return c&want == want
}

// Tool defines the interface for all tools, built-in and MCP-backed
// alike.
type Tool interface {
	ID() string
	Description() string
	Parameters() json.RawMessage
	Capabilities() Capability

	// Execute runs the tool and returns a fully-typed result; Execute
	// itself never returns a tool-level failure as an error — tool
	// failures are reported as a types.ToolResult of kind
	// ToolResultError so they can be recorded back into history. Execute
	// returns a Go error only for infrastructure failures (context
	// cancellation, a programming bug) that the caller cannot recover
	// from by showing the model an error result.
	Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error)

	// EinoTool returns an Eino-compatible tool implementation.
	EinoTool() einotool.InvokableTool
}

// Context provides execution context to tools.
type Context struct {
	SessionID  types.SessionID
	OpID       types.OpID
	ToolCallID types.ToolCallID
	Agent      string
	Workspace  workspace.Workspace
	AbortCh    <-chan struct{}
	Extra      map[string]any

	OnMetadata func(title string, meta map[string]any)
}

// SetMetadata updates tool execution metadata.
func (c *Context) SetMetadata(title string, meta map[string]any) {
	if c.OnMetadata != nil {
		c.OnMetadata(title, meta)
	}
}

// IsAborted checks if the tool execution has been aborted.
func (c *Context) IsAborted() bool {
	select {
	case <-c.AbortCh:
		return true
	default:
		return false
	}
}

// Result represents the output of a tool execution: a typed ToolResult
// for history and the LLM transcript, plus display-only metadata.
type Result struct {
	Title       string
	Value       types.ToolResult
	Metadata    map[string]any
	Attachments []Attachment
}

// Attachment represents a file attachment.
type Attachment struct {
	Filename  string `json:"filename"`
	MediaType string `json:"mediaType"`
	URL       string `json:"url"` // data: URL or file path
}

// errorResult builds a Result wrapping a tool-level failure.
func errorResult(title, message string, retryable bool) *Result {
	return &Result{
		Title: title,
		Value: types.ToolResult{Kind: types.ToolResultError, Error: &types.ErrorResult{Message: message, Retryable: retryable}},
	}
}

// BaseTool provides a base implementation for tools built from a plain
// function, used by tools with no state beyond their execute closure.
type BaseTool struct {
	id           string
	description  string
	parameters   json.RawMessage
	capabilities Capability
	execute      func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error)
}

// NewBaseTool creates a new base tool.
func NewBaseTool(id, description string, params json.RawMessage, caps Capability, execute func(context.Context, json.RawMessage, *Context) (*Result, error)) *BaseTool {
	return &BaseTool{
		id:           id,
		description:  description,
		parameters:   params,
		capabilities: caps,
		execute:      execute,
	}
}

func (t *BaseTool) ID() string                  { return t.id }
func (t *BaseTool) Description() string         { return t.description }
func (t *BaseTool) Parameters() json.RawMessage { return t.parameters }
func (t *BaseTool) Capabilities() Capability     { return t.capabilities }

func (t *BaseTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	return t.execute(ctx, input, toolCtx)
}

// EinoTool returns an Eino-compatible tool implementation.
func (t *BaseTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// einoToolWrapper wraps a Tool to implement Eino's InvokableTool interface.
type einoToolWrapper struct {
	tool Tool
}

// Info returns the tool information.
func (w *einoToolWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := parseJSONSchemaToParams(w.tool.Parameters())
	return &schema.ToolInfo{
		Name:        w.tool.ID(),
		Desc:        w.tool.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun executes the tool and renders its result the way it must
// appear in the model-facing transcript.
func (w *einoToolWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	result, err := w.tool.Execute(ctx, json.RawMessage(argsJSON), &Context{})
	if err != nil {
		return "", err
	}
	return result.Value.LLMFormat(), nil
}

// parseJSONSchemaToParams converts JSON Schema to Eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}
