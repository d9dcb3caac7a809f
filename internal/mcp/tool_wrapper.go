// Package mcp provides Model Context Protocol (MCP) client functionality.
package mcp

import (
	"context"
	"encoding/json"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// MCPToolWrapper wraps an MCP tool to implement the tool.Tool interface.
// This allows MCP tools to be registered in the session tool overlay and
// used seamlessly in the agent loop.
type MCPToolWrapper struct {
	serverName string
	mcpTool    Tool // already has prefixed name from client.Tools()/ToolsByServer()
	client     *Client
}

// NewMCPToolWrapper creates a wrapper for an MCP tool.
func NewMCPToolWrapper(serverName string, mcpTool Tool, client *Client) *MCPToolWrapper {
	return &MCPToolWrapper{
		serverName: serverName,
		mcpTool:    mcpTool,
		client:     client,
	}
}

// ID returns the prefixed tool name (e.g., "serverName_toolName").
func (w *MCPToolWrapper) ID() string { return w.mcpTool.Name }

// Description returns the tool description.
func (w *MCPToolWrapper) Description() string { return w.mcpTool.Description }

// Parameters returns the JSON Schema for tool parameters.
func (w *MCPToolWrapper) Parameters() json.RawMessage { return w.mcpTool.InputSchema }

// Capabilities reports that MCP tools require network access: even a
// stdio-transport server is an external process the workspace sandbox
// does not control, so it is gated the same way as webfetch.
func (w *MCPToolWrapper) Capabilities() tool.Capability { return tool.CapNetwork }

// Execute executes the tool via the MCP client.
func (w *MCPToolWrapper) Execute(ctx context.Context, input json.RawMessage, toolCtx *tool.Context) (*tool.Result, error) {
	output, err := w.client.ExecuteTool(ctx, w.mcpTool.Name, input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &tool.Result{
			Title: w.mcpTool.Name,
			Value: types.ToolResult{Kind: types.ToolResultExternal, External: &types.ExternalResult{
				ServerName: w.serverName,
				ToolName:   w.mcpTool.Name,
				Text:       err.Error(),
				IsError:    true,
			}},
		}, nil
	}

	if toolCtx != nil {
		toolCtx.SetMetadata(w.mcpTool.Name, map[string]any{
			"type":   "mcp",
			"server": w.serverName,
			"tool":   w.mcpTool.Name,
		})
	}

	return &tool.Result{
		Title: w.mcpTool.Name,
		Value: types.ToolResult{Kind: types.ToolResultExternal, External: &types.ExternalResult{
			ServerName: w.serverName,
			ToolName:   w.mcpTool.Name,
			Text:       output,
		}},
	}, nil
}

// EinoTool returns an Eino-compatible tool implementation.
func (w *MCPToolWrapper) EinoTool() einotool.InvokableTool {
	return &mcpEinoWrapper{wrapper: w}
}

// mcpEinoWrapper implements Eino's InvokableTool interface for MCP tools.
type mcpEinoWrapper struct {
	wrapper *MCPToolWrapper
}

// Info returns the tool information.
func (e *mcpEinoWrapper) Info(ctx context.Context) (*schema.ToolInfo, error) {
	params := parseInputSchemaToParams(e.wrapper.mcpTool.InputSchema)
	return &schema.ToolInfo{
		Name:        e.wrapper.ID(),
		Desc:        e.wrapper.Description(),
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}, nil
}

// InvokableRun executes the tool.
func (e *mcpEinoWrapper) InvokableRun(ctx context.Context, argsJSON string, opts ...einotool.Option) (string, error) {
	result, err := e.wrapper.Execute(ctx, json.RawMessage(argsJSON), nil)
	if err != nil {
		return "", err
	}
	return result.Value.LLMFormat(), nil
}

// parseInputSchemaToParams converts JSON Schema to Eino ParameterInfo.
func parseInputSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
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

// WrapTools builds a tool.Tool for every tool exposed by client's connected
// servers, tagged with the server each one came from.
func WrapTools(client *Client) []tool.Tool {
	serverTools := client.ToolsByServer()
	out := make([]tool.Tool, len(serverTools))
	for i, st := range serverTools {
		out[i] = NewMCPToolWrapper(st.ServerName, st.Tool, client)
	}
	return out
}

// RegisterMCPTools registers all MCP tools from the client onto a static
// tool.Registry. Used for single-tenant setups (headless runs, the
// calculator demo server) where every caller should see the same MCP tool
// set; session-scoped callers should prefer a SessionManager overlay
// instead, since a static registration here is visible to every session.
func RegisterMCPTools(client *Client, registry *tool.Registry) {
	if client == nil || registry == nil {
		return
	}
	for _, t := range WrapTools(client) {
		registry.Register(t)
	}
}
