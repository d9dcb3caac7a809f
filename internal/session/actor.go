package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BrendanGraham14/steer-sub008/internal/agentloop"
	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/internal/event"
	"github.com/BrendanGraham14/steer-sub008/internal/eventstore"
	"github.com/BrendanGraham14/steer-sub008/internal/executor"
	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/internal/mcp"
	"github.com/BrendanGraham14/steer-sub008/internal/sharing"
	"github.com/BrendanGraham14/steer-sub008/internal/tool"
	"github.com/BrendanGraham14/steer-sub008/internal/workspace"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// cmdBuffer is the per-session command sink depth. Small: a session
// actor drains its sink quickly between suspension points, so a deep
// queue would only hide a stuck actor rather than help one.
const cmdBuffer = 32

// ActorDeps are the shared, process-wide collaborators an actor needs.
// One instance is constructed per process and handed to every Session
// Manager-created actor; only State and the per-session workspace differ
// per session.
type ActorDeps struct {
	Store     *eventstore.Store
	Resolver  *tool.Resolver
	Executor  *executor.Executor
	Approvals *approval.Coordinator
	McpMgr    *mcp.SessionManager
	LLM       *llm.Registry
	Caps      tool.Capability
	Config    *types.Config
}

// Actor owns one session's in-memory state and is the only goroutine
// that ever mutates it. Every other goroutine (an in-flight operation,
// an approval wait, an MCP reconnect) communicates back to it over a
// channel; this is what makes state mutation race-free without
// per-field locking.
type Actor struct {
	id   types.SessionID
	deps ActorDeps
	ws   workspace.Workspace
	agent *Agent

	cmds  chan Command
	bcast *broadcaster

	mu    sync.RWMutex
	state *State

	unsubApproval func()

	customCmds *customCommands
}

// NewActor constructs an actor around an already-hydrated State. It does
// not start the actor's goroutine; call Run in its own goroutine.
func NewActor(id types.SessionID, deps ActorDeps, ws workspace.Workspace, ag *Agent, state *State, directory string) *Actor {
	if ag == nil {
		ag = DefaultAgent()
	}
	a := &Actor{
		id:    id,
		deps:  deps,
		ws:    ws,
		agent: ag,
		cmds:  make(chan Command, cmdBuffer),
		bcast: newBroadcaster(),
		state: state,
		customCmds: newCustomCommands(directory, deps.Config),
	}
	a.unsubApproval = event.Subscribe(event.ToolApprovalRequested, func(e event.Event) {
		req, ok := e.Data.(approval.Request)
		if !ok || req.SessionID != a.id {
			return
		}
		a.bcast.Publish(ClientEvent{
			Kind:      ClientEventNotice,
			SessionID: a.id,
			Level:     NoticeInfo,
			Message:   fmt.Sprintf("approval requested for %s: %s", req.ToolName, req.Title),
		})
	})
	return a
}

// Send enqueues cmd for processing. It blocks if the actor's sink is
// full, which is the intended backpressure: a client that outruns its
// own session should slow down rather than have commands silently
// dropped.
func (a *Actor) Send(cmd Command) {
	a.cmds <- cmd
}

// Subscribe joins the session's broadcast from this point forward.
func (a *Actor) Subscribe() (<-chan ClientEvent, func()) {
	return a.bcast.Subscribe()
}

// Snapshot returns the current materialized history and approved-tools
// set, safe to read from any goroutine.
func (a *Actor) Snapshot() (history []types.Message, approvedTools []string, model string, title string, shareToken string) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Snapshot(), a.state.ApprovedToolNames(), a.state.Model, a.state.Title, a.state.ShareToken
}

// Stop unsubscribes from process-wide event buses and closes the
// broadcast channel. It does not touch the command channel; callers
// should stop sending to a stopped actor.
func (a *Actor) Stop() {
	if a.unsubApproval != nil {
		a.unsubApproval()
	}
	a.bcast.Close()
}

// operation tracks the single in-flight operation, if any.
type operation struct {
	id       types.OpID
	cancel   context.CancelFunc
	abortCh  chan struct{}
	closeOne sync.Once
	events   chan opMsg
}

func (op *operation) abort() {
	op.closeOne.Do(func() {
		op.cancel()
		close(op.abortCh)
	})
}

// opMsgKind discriminates opMsg, the internal channel an in-flight
// operation's agentloop.Hooks use to report back to the actor goroutine.
// Routing every delta/message/state notification through this channel
// (rather than letting the operation goroutine touch a.state or the
// event store directly) is what keeps all mutation on the actor
// goroutine even though the LLM stream and tool execution run
// concurrently with it.
type opMsgKind string

const (
	opMsgDelta   opMsgKind = "delta"
	opMsgMessage opMsgKind = "message"
	opMsgState   opMsgKind = "state"
	opMsgDone    opMsgKind = "done"
)

type opMsg struct {
	kind    opMsgKind
	delta   llm.Delta
	message types.Message
	state   agentloop.State
	outcome agentloop.Outcome
}

// Run is the actor's command loop. It returns when ctx is cancelled,
// e.g. by the Session Manager evicting or deleting this session.
func (a *Actor) Run(ctx context.Context) {
	var op *operation
	var titleCh chan string

	for {
		var opEvents <-chan opMsg
		if op != nil {
			opEvents = op.events
		}

		select {
		case <-ctx.Done():
			if op != nil {
				op.abort()
			}
			return

		case cmd, ok := <-a.cmds:
			if !ok {
				return
			}
			a.handle(ctx, cmd, &op, &titleCh)

		case m, ok := <-opEvents:
			if !ok {
				op = nil
				continue
			}
			a.handleOpMsg(ctx, op, m, &titleCh)

		case title, ok := <-titleCh:
			if !ok {
				titleCh = nil
				continue
			}
			a.applyTitle(ctx, title)
			titleCh = nil
		}
	}
}

func (a *Actor) handle(ctx context.Context, cmd Command, op **operation, titleCh *chan string) {
	switch cmd.Kind {
	case CmdSendUserMessage:
		a.startOperation(ctx, cmd, op, titleCh)

	case CmdCancelOperation:
		if *op == nil {
			cmd.reply(errors.New("session: no operation in progress"))
			return
		}
		(*op).abort()
		cmd.reply(nil)

	case CmdApproveTool:
		ok := a.deps.Approvals.Respond(a.id, cmd.CallID, approval.Decision{Granted: true, Scope: cmd.Scope})
		if !ok {
			cmd.reply(errors.New("session: no matching pending approval"))
			return
		}
		cmd.reply(nil)

	case CmdDenyTool:
		ok := a.deps.Approvals.Respond(a.id, cmd.CallID, approval.Decision{Granted: false})
		if !ok {
			cmd.reply(errors.New("session: no matching pending approval"))
			return
		}
		cmd.reply(nil)

	case CmdSetModel:
		a.appendAndFold(ctx, types.Event{
			SessionID: a.id,
			Kind:      types.EventModelChanged,
			Payload:   mustMarshal(types.ModelChangedPayload{Model: cmd.Model}),
		})
		cmd.reply(nil)

	case CmdRunSlashCommand:
		cmd.reply(a.runSlash(ctx, cmd.Slash, op))

	case CmdRunCustomCommand:
		result, err := a.customCmds.Expand(ctx, cmd.CustomCmdName, cmd.CustomCmdArgs)
		if err != nil {
			cmd.reply(err)
			return
		}
		cmd.Content = []types.UserBlock{{Kind: types.UserBlockText, Text: result.Prompt}}
		a.startOperation(ctx, cmd, op, titleCh)

	case CmdRegisterMcp:
		cfg, err := transportToConfig(cmd.Transport)
		if err != nil {
			cmd.reply(err)
			return
		}
		if err := a.deps.McpMgr.AddServer(ctx, a.id, cmd.ServerName, cfg); err != nil {
			cmd.reply(err)
			return
		}
		var toolNames []string
		for _, t := range a.deps.Resolver.Resolve(a.id, a.deps.Caps) {
			toolNames = append(toolNames, t.ID())
		}
		a.appendAndFold(ctx, types.Event{
			SessionID: a.id,
			Kind:      types.EventMcpBackendRegistered,
			Payload:   mustMarshal(types.McpBackendPayload{ServerName: cmd.ServerName, ToolNames: toolNames}),
		})
		cmd.reply(nil)

	case CmdUnregisterMcp:
		if err := a.deps.McpMgr.RemoveServer(a.id, cmd.ServerName); err != nil {
			cmd.reply(err)
			return
		}
		a.appendAndFold(ctx, types.Event{
			SessionID: a.id,
			Kind:      types.EventMcpBackendRemoved,
			Payload:   mustMarshal(types.McpBackendPayload{ServerName: cmd.ServerName}),
		})
		cmd.reply(nil)

	case CmdEditMessage:
		cmd.reply(a.editMessage(ctx, cmd))

	case CmdShareSession:
		a.mu.RLock()
		already := a.state.ShareToken
		a.mu.RUnlock()
		if already != "" {
			cmd.reply(nil)
			return
		}
		token, err := sharing.NewToken()
		if err != nil {
			cmd.reply(fmt.Errorf("session: generate share token: %w", err))
			return
		}
		a.appendAndFold(ctx, types.Event{
			SessionID: a.id,
			Kind:      types.EventSessionShared,
			Payload:   mustMarshal(types.SessionSharedPayload{Token: token}),
		})
		cmd.reply(nil)

	case CmdUnshareSession:
		a.appendAndFold(ctx, types.Event{
			SessionID: a.id,
			Kind:      types.EventSessionUnshared,
		})
		cmd.reply(nil)

	default:
		cmd.reply(fmt.Errorf("session: unknown command %q", cmd.Kind))
	}
}

func (a *Actor) runSlash(ctx context.Context, s SlashCommand, op **operation) error {
	switch s {
	case SlashClear:
		if *op != nil {
			return errors.New("session: cannot clear while an operation is running")
		}
		a.mu.Lock()
		a.state.Messages = nil
		a.mu.Unlock()
		return nil

	case SlashCompact:
		if *op != nil {
			return errors.New("session: cannot compact while an operation is running")
		}
		a.mu.Lock()
		history := a.state.Snapshot()
		model := a.state.Model
		a.mu.Unlock()

		client, err := a.clientFor(model)
		if err != nil {
			return err
		}
		compactor := agentloop.NewCompactor(client)
		compacted, err := compactor.Compact(ctx, model, history, false)
		if err != nil {
			return err
		}
		a.mu.Lock()
		a.state.Messages = compacted
		a.mu.Unlock()
		return nil

	default:
		return fmt.Errorf("session: unsupported slash command %q", s)
	}
}

func (a *Actor) editMessage(ctx context.Context, cmd Command) error {
	a.mu.Lock()
	idx := -1
	for i, m := range a.state.Messages {
		if m.ID == cmd.TargetID {
			idx = i
			break
		}
	}
	if idx < 0 {
		a.mu.Unlock()
		return fmt.Errorf("session: no message with id %q", cmd.TargetID)
	}
	// Truncate history at the edited message: everything after it
	// belonged to a conversational branch that the edit supersedes.
	a.state.Messages = a.state.Messages[:idx]
	a.mu.Unlock()

	edited := types.Message{
		ID:        types.NewMessageID(types.RoleUser),
		Role:      types.RoleUser,
		Timestamp: time.Now().Unix(),
		User:      &types.UserMessage{Content: cmd.NewContent},
	}
	a.appendAndFold(ctx, types.NewMessageAppendedEvent(a.id, edited, ""))
	return nil
}

func (a *Actor) clientFor(model string) (llm.Client, error) {
	providerID, modelID := llm.ParseModelString(model)
	if providerID == "" {
		m, err := a.deps.LLM.DefaultModel()
		if err != nil {
			return nil, err
		}
		providerID, modelID = m.ProviderID, m.ID
	}
	_ = modelID
	return a.deps.LLM.Get(providerID)
}

// startOperation launches a new Agent Loop run as a background goroutine
// and wires it to the actor via an opMsg channel. Only one operation may
// be in flight per session.
func (a *Actor) startOperation(ctx context.Context, cmd Command, op **operation, titleCh *chan string) {
	if *op != nil {
		cmd.reply(errors.New("session: an operation is already running"))
		return
	}

	a.mu.Lock()
	if a.state.Model == "" {
		if m, err := a.deps.LLM.DefaultModel(); err == nil {
			a.state.Model = m.ProviderID + "/" + m.ID
		}
	}
	model := a.state.Model
	isFirstMessage := len(a.state.Messages) == 0
	a.mu.Unlock()

	client, err := a.clientFor(model)
	if err != nil {
		cmd.reply(err)
		return
	}

	userMsg := types.Message{
		ID:        types.NewMessageID(types.RoleUser),
		Role:      types.RoleUser,
		Timestamp: time.Now().Unix(),
		User:      &types.UserMessage{Content: cmd.Content},
	}
	opID := types.NewOpID()
	a.appendAndFold(ctx, types.NewMessageAppendedEvent(a.id, userMsg, opID))
	a.appendAndFold(ctx, types.Event{
		SessionID: a.id,
		Kind:      types.EventOperationStarted,
		Payload: mustMarshal(types.OperationStartedPayload{
			OpID:          opID,
			UserMessageID: userMsg.ID,
			Model:         model,
			ApprovedTools: a.state.ApprovedToolNames(),
		}),
	})

	env := buildEnvironment(ctx, a.ws)
	allCaps := tool.CapWorkspace | tool.CapAgentSpawner | tool.CapModelCaller | tool.CapNetwork
	allowed := make([]tool.Tool, 0)
	for _, t := range a.deps.Resolver.Resolve(a.id, allCaps) {
		if a.agent.ToolEnabled(t.ID()) {
			allowed = append(allowed, t)
		}
	}

	sysPrompt := NewSystemPrompt(env, a.agent, a.providerOf(model), model)
	a.mu.RLock()
	if a.state.System != "" {
		sysPrompt.WithOverride(a.state.System)
	}
	history := a.state.Snapshot()
	a.mu.RUnlock()

	opCtx, opCancel := context.WithCancel(ctx)
	newOp := &operation{
		id:      opID,
		cancel:  opCancel,
		abortCh: make(chan struct{}),
		events:  make(chan opMsg, 64),
	}
	*op = newOp

	loop := &agentloop.Loop{Client: client, Executor: a.deps.Executor, MaxSteps: a.agent.MaxSteps}
	runInput := agentloop.RunInput{
		SessionID:    a.id,
		OpID:         opID,
		Agent:        a.agent.Name,
		Model:        model,
		SystemPrompt: sysPrompt.Build(),
		History:      history,
		Tools:        allowed,
		Workspace:    a.ws,
		AbortCh:      newOp.abortCh,
		ToolTimeout:  5 * time.Minute,
		MaxTokens:    4096,
		Temperature:  a.agent.Temperature,
		Hooks: agentloop.Hooks{
			OnDelta:   func(d llm.Delta) { newOp.events <- opMsg{kind: opMsgDelta, delta: d} },
			OnMessage: func(m types.Message) { newOp.events <- opMsg{kind: opMsgMessage, message: m} },
			OnState:   func(s agentloop.State) { newOp.events <- opMsg{kind: opMsgState, state: s} },
		},
	}

	go func() {
		outcome := loop.Run(opCtx, runInput)
		newOp.events <- opMsg{kind: opMsgDone, outcome: outcome}
		close(newOp.events)
	}()

	if isFirstMessage {
		tch := make(chan string, 1)
		*titleCh = tch
		userText := userMsg.TextContent()
		go func() {
			title := generateTitle(ctx, client, model, userText)
			if title != "" {
				tch <- title
			}
			close(tch)
		}()
	}

	cmd.reply(nil)
}

func (a *Actor) providerOf(model string) string {
	providerID, _ := llm.ParseModelString(model)
	return providerID
}

func (a *Actor) handleOpMsg(ctx context.Context, op *operation, m opMsg, titleCh *chan string) {
	switch m.kind {
	case opMsgDelta:
		a.bcast.Publish(ClientEvent{Kind: ClientEventDelta, SessionID: a.id, OpID: op.id, Delta: m.delta})

	case opMsgState:
		a.bcast.Publish(ClientEvent{Kind: ClientEventState, SessionID: a.id, OpID: op.id, State: string(m.state)})

	case opMsgMessage:
		a.appendAndFold(ctx, types.NewMessageAppendedEvent(a.id, m.message, op.id))

	case opMsgDone:
		a.finishOperation(ctx, op, m.outcome)
	}
}

func (a *Actor) finishOperation(ctx context.Context, op *operation, outcome agentloop.Outcome) {
	if outcome.Err != nil {
		if errors.Is(outcome.Err, context.Canceled) {
			a.appendAndFold(ctx, types.Event{
				SessionID: a.id,
				Kind:      types.EventOperationCancelled,
				Payload:   mustMarshal(types.OperationCancelledPayload{OpID: op.id, Reason: "cancelled"}),
			})
		} else {
			a.bcast.Publish(ClientEvent{
				Kind: ClientEventNotice, SessionID: a.id, OpID: op.id,
				Level: NoticeError, Message: outcome.Err.Error(),
			})
			a.appendAndFold(ctx, types.Event{
				SessionID: a.id,
				Kind:      types.EventOperationCompleted,
				Payload:   mustMarshal(types.OperationCompletedPayload{OpID: op.id, StopReason: "error"}),
			})
		}
		return
	}
	a.appendAndFold(ctx, types.Event{
		SessionID: a.id,
		Kind:      types.EventOperationCompleted,
		Payload:   mustMarshal(types.OperationCompletedPayload{OpID: op.id, StopReason: string(outcome.StopReason)}),
	})
}

func (a *Actor) applyTitle(ctx context.Context, title string) {
	a.mu.RLock()
	current := a.state.Title
	a.mu.RUnlock()
	if !isDefaultTitle(current) {
		return
	}
	a.appendAndFold(ctx, types.Event{
		SessionID: a.id,
		Kind:      types.EventSessionTitled,
		Payload:   mustMarshal(types.SessionTitledPayload{Title: title}),
	})
	if err := a.deps.Store.UpdateTitle(ctx, a.id, title, time.Now().Unix()); err != nil {
		a.bcast.Publish(ClientEvent{Kind: ClientEventNotice, SessionID: a.id, Level: NoticeError, Message: "failed to persist title: " + err.Error()})
	}
}

// appendAndFold persists ev (assigning its Seq), folds it into state,
// and broadcasts it. It is the only path by which state changes, and it
// only ever runs on the actor goroutine.
func (a *Actor) appendAndFold(ctx context.Context, ev types.Event) {
	persisted, err := a.deps.Store.Append(ctx, a.id, time.Now().Unix(), nil, []types.Event{ev})
	if err != nil {
		a.bcast.Publish(ClientEvent{Kind: ClientEventNotice, SessionID: a.id, Level: NoticeError, Message: "failed to persist event: " + err.Error()})
		return
	}
	for _, pe := range persisted {
		a.mu.Lock()
		_ = a.state.Apply(pe)
		a.mu.Unlock()
		e := pe
		a.bcast.Publish(ClientEvent{Kind: ClientEventPersisted, SessionID: a.id, Event: &e})
	}
}

func mustMarshal(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic("session: payload must be marshalable: " + err.Error())
	}
	return b
}
