package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"

	"github.com/BrendanGraham14/steer-sub008/internal/storage"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

const todoreadDescription = `Use this tool to read your todo list`

// TodoReadTool reads the current todo list for a session.
type TodoReadTool struct {
	storage *storage.Storage
}

// NewTodoReadTool creates a new todoread tool.
func NewTodoReadTool(store *storage.Storage) *TodoReadTool {
	return &TodoReadTool{storage: store}
}

func (t *TodoReadTool) ID() string              { return "todoread" }
func (t *TodoReadTool) Description() string     { return todoreadDescription }
func (t *TodoReadTool) Capabilities() Capability { return 0 }

func (t *TodoReadTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {},
		"required": []
	}`)
}

func (t *TodoReadTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var items []types.TodoItem
	err := t.storage.Get(ctx, []string{"todo", string(toolCtx.SessionID)}, &items)
	if err == storage.ErrNotFound {
		items = []types.TodoItem{}
	} else if err != nil {
		return nil, fmt.Errorf("todoread: %w", err)
	}

	nonCompleted := 0
	for _, item := range items {
		if item.Status != "completed" {
			nonCompleted++
		}
	}

	return &Result{
		Title: fmt.Sprintf("%d todos", nonCompleted),
		Value: types.ToolResult{Kind: types.ToolResultTodoRead, TodoRead: &types.TodoReadResult{Items: items}},
		Metadata: map[string]any{
			"count": len(items),
		},
	}, nil
}

func (t *TodoReadTool) EinoTool() einotool.InvokableTool { return &einoToolWrapper{tool: t} }
