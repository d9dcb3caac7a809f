package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/agent"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const taskDescription = `Launch a new agent to handle complex, multi-step tasks autonomously.

The Task tool launches specialized agents (subprocesses) that autonomously handle complex tasks.
Each agent type has specific capabilities and tools available to it.

Available agent types:
- general: General-purpose agent for researching and exploration
- explore: Fast agent specialized for codebase exploration
- plan: Planning agent for analysis without making changes

Usage notes:
- Launch multiple agents concurrently when possible
- Each agent invocation is stateless
- The agent's outputs should be trusted
- Specify desired thoroughness level when calling explore agent`

// TaskTool allows spawning sub-agents for complex tasks.
type TaskTool struct {
	agentRegistry *agent.Registry
	executor      TaskExecutor
}

// TaskExecutor is the interface for executing subtasks.
type TaskExecutor interface {
	// ExecuteSubtask runs a subtask with the given agent and prompt.
	ExecuteSubtask(ctx context.Context, sessionID types.SessionID, agentName string, prompt string, opts TaskOptions) (*TaskResult, error)
}

// TaskOptions contains options for task execution.
type TaskOptions struct {
	Model       string
	ResumeFrom  string
	Description string
}

// TaskResult represents the result of a subtask.
type TaskResult struct {
	Output    string
	SessionID types.SessionID
	AgentID   string
	Metadata  map[string]any
}

// TaskInput represents the input for the task tool.
type TaskInput struct {
	Description  string `json:"description"`
	Prompt       string `json:"prompt"`
	SubagentType string `json:"subagentType"`
	Model        string `json:"model,omitempty"`
	Resume       string `json:"resume,omitempty"`
}

// NewTaskTool creates a new task tool.
func NewTaskTool(registry *agent.Registry) *TaskTool {
	if registry == nil {
		registry = agent.NewRegistry()
	}
	return &TaskTool{agentRegistry: registry}
}

// SetExecutor sets the task executor.
func (t *TaskTool) SetExecutor(executor TaskExecutor) {
	t.executor = executor
}

func (t *TaskTool) ID() string              { return "task" }
func (t *TaskTool) Description() string     { return taskDescription }
func (t *TaskTool) Capabilities() Capability { return CapAgentSpawner }

func (t *TaskTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"description": {
				"type": "string",
				"description": "A short (3-5 word) description of the task"
			},
			"prompt": {
				"type": "string",
				"description": "The detailed task for the agent to perform"
			},
			"subagentType": {
				"type": "string",
				"description": "The type of specialized agent to use (general, explore, plan)"
			},
			"model": {
				"type": "string",
				"description": "Optional model to use (sonnet, opus, haiku)",
				"enum": ["sonnet", "opus", "haiku"]
			},
			"resume": {
				"type": "string",
				"description": "Optional agent ID to resume from"
			}
		},
		"required": ["description", "prompt", "subagentType"]
	}`)
}

func (t *TaskTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params TaskInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("task: invalid input: %w", err)
	}

	title := fmt.Sprintf("Task: %s", params.Description)

	if params.Description == "" || params.Prompt == "" || params.SubagentType == "" {
		return errorResult(title, "description, prompt and subagentType are all required", false), nil
	}

	subagent, err := t.agentRegistry.Get(params.SubagentType)
	if err != nil {
		return errorResult(title, fmt.Sprintf("unknown subagent type %q", params.SubagentType), false), nil
	}
	if !subagent.IsSubagent() {
		return errorResult(title, fmt.Sprintf("agent %s cannot be used as a subagent (mode: %s)", params.SubagentType, subagent.Mode), false), nil
	}

	toolCtx.SetMetadata(params.Description, map[string]any{
		"subagent": params.SubagentType,
		"status":   "starting",
	})

	if t.executor == nil {
		return errorResult(title, "no task executor configured for this session", false), nil
	}

	opts := TaskOptions{
		Model:       params.Model,
		ResumeFrom:  params.Resume,
		Description: params.Description,
	}

	result, err := t.executor.ExecuteSubtask(ctx, toolCtx.SessionID, params.SubagentType, params.Prompt, opts)
	if err != nil {
		return errorResult(fmt.Sprintf("Subtask failed: %s", params.Description), err.Error(), true), nil
	}

	return &Result{
		Title: fmt.Sprintf("Completed: %s", params.Description),
		Value: types.ToolResult{Kind: types.ToolResultAgent, Agent: &types.AgentResult{
			Summary:        result.Output,
			ChildSessionID: result.SessionID,
		}},
		Metadata: result.Metadata,
	}, nil
}

func (t *TaskTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }

// GetAvailableAgents returns a list of available subagent types.
func (t *TaskTool) GetAvailableAgents() []string {
	agents := t.agentRegistry.ListSubagents()
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}

// GetAgentDescription returns the description of a specific agent.
func (t *TaskTool) GetAgentDescription(name string) (string, error) {
	ag, err := t.agentRegistry.Get(name)
	if err != nil {
		return "", err
	}
	return ag.Description, nil
}
