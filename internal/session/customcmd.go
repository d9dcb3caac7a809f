package session

import (
	"context"
	"fmt"

	"github.com/BrendanGraham14/steer-sub008/internal/command"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// customCommands resolves the project-defined templated commands (from
// config and .steer/commands/*.md) a session can run by name, expanding
// one into a plain user message before it reaches the agent loop.
type customCommands struct {
	exec *command.Executor
}

func newCustomCommands(workDir string, cfg *types.Config) *customCommands {
	return &customCommands{exec: command.NewExecutor(workDir, cfg)}
}

// Expand resolves name against the project's custom command catalog and
// renders its template against args, returning the text to send as the
// user's next message. The result's Agent/Model fields are currently
// informational only: CmdRunCustomCommand does not yet switch the
// session's agent or model before sending.
func (c *customCommands) Expand(ctx context.Context, name, args string) (*command.ExecuteResult, error) {
	if c == nil || c.exec == nil {
		return nil, fmt.Errorf("session: no custom commands configured")
	}
	if _, ok := c.exec.Get(name); !ok {
		return nil, fmt.Errorf("session: unknown custom command %q", name)
	}
	return c.exec.Execute(ctx, name, args)
}
