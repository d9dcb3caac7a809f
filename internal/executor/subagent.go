// Package executor provides task execution implementations.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/agent"
	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// SubagentExecutor implements tool.TaskExecutor by spawning a child
// session under the requested agent profile, running it for one turn,
// and returning its assistant reply as the task's output, driven through
// session.Manager's actor/event-subscription API.
type SubagentExecutor struct {
	manager       *session.Manager
	agentRegistry *agent.Registry
	workDir       string
	defaultModel  string
}

// SubagentExecutorConfig holds configuration for creating a SubagentExecutor.
type SubagentExecutorConfig struct {
	Manager       *session.Manager
	AgentRegistry *agent.Registry
	WorkDir       string
	DefaultModel  string
}

// NewSubagentExecutor creates a new SubagentExecutor.
func NewSubagentExecutor(cfg SubagentExecutorConfig) *SubagentExecutor {
	return &SubagentExecutor{
		manager:       cfg.Manager,
		agentRegistry: cfg.AgentRegistry,
		workDir:       cfg.WorkDir,
		defaultModel:  cfg.DefaultModel,
	}
}

// ExecuteSubtask implements tool.TaskExecutor. It creates a child
// session under agentName's profile, sends prompt as the first user
// message, and waits for the resulting operation to finish.
func (e *SubagentExecutor) ExecuteSubtask(
	ctx context.Context,
	sessionID types.SessionID,
	agentName string,
	prompt string,
	opts tool.TaskOptions,
) (*tool.TaskResult, error) {
	agentConfig, err := e.agentRegistry.Get(agentName)
	if err != nil {
		return nil, fmt.Errorf("agent not found: %s: %w", agentName, err)
	}
	if !agentConfig.IsSubagent() {
		return nil, fmt.Errorf("agent %s cannot be used as subagent (mode: %s)", agentName, agentConfig.Mode)
	}

	childAgent := convertToSessionAgent(agentConfig)

	childActor, childID, err := e.manager.CreateSessionWithAgent(ctx, e.workDir, childAgent)
	if err != nil {
		return nil, fmt.Errorf("create child session: %w", err)
	}

	model := opts.Model
	if model == "" {
		model = e.defaultModel
	}
	if model != "" {
		result := make(chan error, 1)
		childActor.Send(session.Command{Kind: session.CmdSetModel, Model: model, Result: result})
		if err := <-result; err != nil {
			return nil, fmt.Errorf("set subagent model: %w", err)
		}
	}

	sub, unsub := childActor.Subscribe()
	defer unsub()

	result := make(chan error, 1)
	childActor.Send(session.Command{
		Kind:    session.CmdSendUserMessage,
		Content: []types.UserBlock{{Kind: types.UserBlockText, Text: prompt}},
		Result:  result,
	})
	if err := <-result; err != nil {
		return nil, fmt.Errorf("send subagent prompt: %w", err)
	}

	if err := waitForSubtaskCompletion(ctx, sub); err != nil {
		return nil, fmt.Errorf("parent session %s: %w", sessionID, err)
	}

	history, _, _, _, _ := childActor.Snapshot()
	output := lastAssistantText(history)

	return &tool.TaskResult{
		Output:    output,
		SessionID: childID,
		AgentID:   agentName,
		Metadata: map[string]any{
			"parentSessionID": string(sessionID),
		},
	}, nil
}

func waitForSubtaskCompletion(ctx context.Context, sub <-chan session.ClientEvent) error {
	for {
		select {
		case ev := <-sub:
			if ev.Kind != session.ClientEventPersisted || ev.Event == nil {
				continue
			}
			switch ev.Event.Kind {
			case types.EventOperationCompleted:
				return nil
			case types.EventOperationCancelled:
				return fmt.Errorf("subtask cancelled")
			}
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Minute):
			return fmt.Errorf("subtask timed out")
		}
	}
}

func lastAssistantText(history []types.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == types.RoleAssistant {
			return history[i].TextContent()
		}
	}
	return ""
}

// convertToSessionAgent converts agent.Agent to session.Agent.
func convertToSessionAgent(a *agent.Agent) *session.Agent {
	var enabledTools []string
	var disabledTools []string

	hasWildcard := false
	wildcardEnabled := false

	for t, enabled := range a.Tools {
		if t == "*" {
			hasWildcard = true
			wildcardEnabled = enabled
			continue
		}
		if enabled {
			enabledTools = append(enabledTools, t)
		} else {
			disabledTools = append(disabledTools, t)
		}
	}

	if hasWildcard && wildcardEnabled {
		enabledTools = nil
	}

	bashPerm := "ask"
	if a.Permission.Bash != nil {
		if action, ok := a.Permission.Bash["*"]; ok {
			bashPerm = string(action)
		}
	}

	writePerm := "ask"
	if a.Permission.Edit != "" {
		writePerm = string(a.Permission.Edit)
	}

	doomLoopPerm := "ask"
	if a.Permission.DoomLoop != "" {
		doomLoopPerm = string(a.Permission.DoomLoop)
	}

	return &session.Agent{
		Name:          a.Name,
		Prompt:        a.Prompt,
		Temperature:   a.Temperature,
		TopP:          a.TopP,
		MaxSteps:      50,
		Tools:         enabledTools,
		DisabledTools: disabledTools,
		Permission: session.AgentPermission{
			DoomLoop: doomLoopPerm,
			Bash:     bashPerm,
			Write:    writePerm,
		},
	}
}
