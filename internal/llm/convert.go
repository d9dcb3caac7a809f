package llm

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// toEinoMessages flattens a system prompt and conversation history into
// the role/content/tool-call shape eino's ChatModel expects. Each of our
// tagged-union Message blocks becomes either plain text concatenation, a
// schema.ToolCall, or a tool-result message, walking each message's
// blocks keyed by their own role/kind rather than a separate parts index.
func toEinoMessages(systemPrompt string, messages []types.Message) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages)+1)
	if systemPrompt != "" {
		result = append(result, &schema.Message{Role: schema.System, Content: systemPrompt})
	}

	for _, m := range messages {
		switch m.Role {
		case types.RoleUser:
			result = append(result, userToEino(m))
		case types.RoleAssistant:
			result = append(result, assistantToEino(m))
		case types.RoleTool:
			result = append(result, toolToEino(m))
		}
	}
	return result
}

func userToEino(m types.Message) *schema.Message {
	msg := &schema.Message{Role: schema.User}
	if m.User == nil {
		return msg
	}
	for _, b := range m.User.Content {
		switch b.Kind {
		case types.UserBlockText:
			msg.Content += b.Text
		case types.UserBlockCommand:
			if b.Cmd != nil {
				msg.Content += renderCommandTranscript(*b.Cmd)
			}
		case types.UserBlockImage:
			// Image blocks are dropped: plain Content concatenation has
			// nowhere to put binary data, and no MultiContent is set.
		}
	}
	return msg
}

func renderCommandTranscript(c types.CommandTx) string {
	out := "$ " + c.Command + "\n" + c.Stdout
	if c.Stderr != "" {
		out += "\n" + c.Stderr
	}
	return out
}

func assistantToEino(m types.Message) *schema.Message {
	msg := &schema.Message{Role: schema.Assistant}
	if m.Assistant == nil {
		return msg
	}
	for _, b := range m.Assistant.Content {
		switch b.Kind {
		case types.AssistantBlockText:
			msg.Content += b.Text
		case types.AssistantBlockToolCall:
			if b.ToolCall != nil {
				msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
					ID: string(b.ToolCall.ID),
					Function: schema.FunctionCall{
						Name:      b.ToolCall.Name,
						Arguments: string(b.ToolCall.Parameters),
					},
				})
			}
		case types.AssistantBlockThought:
			if b.Thought != nil {
				msg.ReasoningContent = b.Thought.Text
			}
		case types.AssistantBlockImage:
			// see userToEino: no plain-text carrier for binary content.
		}
	}
	return msg
}

func toolToEino(m types.Message) *schema.Message {
	if m.Tool == nil {
		return &schema.Message{Role: schema.Tool}
	}
	return &schema.Message{
		Role:       schema.Tool,
		Content:    toolResultText(m.Tool.Result),
		ToolCallID: string(m.Tool.ToolUseID),
	}
}

// toolResultText renders a ToolResult to the plain string a Tool-role
// message carries back to the model, same shape regardless of which
// ToolResult.Kind produced it.
func toolResultText(r types.ToolResult) string {
	switch r.Kind {
	case types.ToolResultError:
		if r.Error != nil {
			return "error: " + r.Error.Message
		}
		return "error"
	case types.ToolResultExternal:
		if r.External != nil {
			return r.External.Text
		}
		return ""
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return ""
		}
		return string(b)
	}
}

// toEinoTools converts our ToolSchema list into eino's ToolInfo shape,
// parsing each JSON-Schema parameter block into the schema.ParameterInfo
// tree eino's ChatModel expects.
func toEinoTools(tools []ToolSchema) []*schema.ToolInfo {
	result := make([]*schema.ToolInfo, len(tools))
	for i, t := range tools {
		var params map[string]*schema.ParameterInfo
		if len(t.Parameters) > 0 {
			params = parseJSONSchemaToParams(t.Parameters)
		}
		result[i] = &schema.ToolInfo{
			Name:        t.Name,
			Desc:        t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		}
	}
	return result
}

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

	requiredSet := make(map[string]bool, len(jsonSchema.Required))
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo, len(jsonSchema.Properties))
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
