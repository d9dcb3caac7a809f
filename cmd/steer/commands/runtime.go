package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/BrendanGraham14/steer-sub008/internal/agent"
	"github.com/BrendanGraham14/steer-sub008/internal/appclient"
	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/internal/config"
	"github.com/BrendanGraham14/steer-sub008/internal/eventstore"
	"github.com/BrendanGraham14/steer-sub008/internal/executor"
	"github.com/BrendanGraham14/steer-sub008/internal/formatter"
	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/internal/logging"
	"github.com/BrendanGraham14/steer-sub008/internal/lsp"
	"github.com/BrendanGraham14/steer-sub008/internal/mcp"
	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/internal/storage"
	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/internal/vcs"
	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
)

// runtime bundles everything a command needs to reach sessions: either
// directly in-process (headless, session subcommands) or to hand to a
// remote.Server (the server command).
type runtime struct {
	store   *eventstore.Store
	manager *session.Manager
	client  appclient.AgentClient
	lsp     *lsp.Client
	vcs     *vcs.Watcher
}

// buildRuntime loads configuration rooted at directory, opens the event
// store under the user's data directory, and wires a Session Manager
// with every built-in tool and configured MCP backend attached. Callers
// own the returned runtime and must Close it, which closes the store.
func buildRuntime(ctx context.Context, directory string, maxConcurrent int) (*runtime, error) {
	cfg, err := config.Load(directory)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths()
	if err := paths.EnsurePaths(); err != nil {
		return nil, fmt.Errorf("ensure paths: %w", err)
	}

	store, err := eventstore.Open(ctx, filepath.Join(paths.StoragePath(), "events.db"))
	if err != nil {
		return nil, fmt.Errorf("open event store: %w", err)
	}

	blobStore := storage.New(paths.StoragePath())
	agentReg := agent.NewRegistry()
	toolReg := tool.DefaultRegistry(blobStore, agentReg)
	lspDisabled := cfg.LSP != nil && cfg.LSP.Disabled
	lspClient := lsp.NewClient(directory, lspDisabled)
	toolReg.RegisterDiagnostics(lspClient)

	fmtMgr := formatter.NewManager(directory, cfg)
	if w, ok := toolReg.Get("write"); ok {
		if writeTool, ok := w.(*tool.WriteTool); ok {
			writeTool.SetFormatter(fmtMgr)
		}
	}
	if e, ok := toolReg.Get("edit"); ok {
		if editTool, ok := e.(*tool.EditTool); ok {
			editTool.SetFormatter(fmtMgr)
		}
	}

	resolver := tool.NewResolver(toolReg)
	approvals := approval.NewCoordinator()
	caps := tool.CapWorkspace | tool.CapAgentSpawner | tool.CapModelCaller | tool.CapNetwork
	exec := executor.New(resolver, caps, approvals)

	mcpConfigs := make(map[string]*mcp.Config)
	for name, c := range cfg.MCP {
		enabled := c.Enabled == nil || *c.Enabled
		mcpConfigs[name] = &mcp.Config{
			Enabled:     enabled,
			Type:        mcp.TransportType(c.Type),
			URL:         c.URL,
			Headers:     c.Headers,
			Command:     c.Command,
			Environment: c.Environment,
			Timeout:     c.Timeout,
		}
	}
	mcpMgr := mcp.NewSessionManager(resolver, mcpConfigs)

	llmReg, err := llm.InitializeClients(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initialize llm clients: %w", err)
	}

	deps := session.ActorDeps{
		Store: store, Resolver: resolver, Executor: exec,
		Approvals: approvals, McpMgr: mcpMgr, LLM: llmReg, Caps: caps,
		Config: cfg,
	}
	wsFac := func(dir string) (workspace.Workspace, error) { return workspace.NewLocal(dir), nil }
	mgr := session.NewManager(deps, wsFac, session.ManagerConfig{MaxConcurrentSessions: maxConcurrent})

	if t, ok := toolReg.Get("task"); ok {
		if taskTool, ok := t.(*tool.TaskTool); ok {
			taskTool.SetExecutor(executor.NewSubagentExecutor(executor.SubagentExecutorConfig{
				Manager:       mgr,
				AgentRegistry: agentReg,
				WorkDir:       directory,
				DefaultModel:  cfg.Model,
			}))
		}
	}

	vcsWatcher, err := vcs.NewWatcher(directory)
	if err != nil {
		logging.Warn().Err(err).Msg("vcs watcher disabled")
	} else if vcsWatcher != nil {
		vcsWatcher.Start()
	}

	return &runtime{store: store, manager: mgr, client: appclient.NewLocal(mgr), lsp: lspClient, vcs: vcsWatcher}, nil
}

func (r *runtime) Close() error {
	if r.lsp != nil {
		r.lsp.Close()
	}
	if r.vcs != nil {
		r.vcs.Stop()
	}
	return r.store.Close()
}
