package session

import (
	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

// McpTransportKind discriminates the transport variants a
// RegisterMcpBackend command names. The backend resolver (internal/mcp)
// only actually establishes stdio and SSE connections today; Tcp and
// Http both translate onto SSE at the mcp.Config boundary (see
// transportToConfig) until a dedicated raw-TCP or plain-HTTP transport
// is wired in.
type McpTransportKind string

const (
	McpTransportStdio McpTransportKind = "stdio"
	McpTransportTcp   McpTransportKind = "tcp"
	McpTransportSse   McpTransportKind = "sse"
	McpTransportHttp  McpTransportKind = "http"
)

// McpTransport is the wire-shaped transport description a
// RegisterMcpBackend command carries; transportToConfig turns it into
// the mcp package's Config.
type McpTransport struct {
	Kind McpTransportKind

	// McpTransportStdio
	Command []string
	Args    []string

	// McpTransportTcp
	Host string
	Port int

	// McpTransportSse, McpTransportHttp
	URL     string
	Headers map[string]string
}

// CommandKind discriminates the Command tagged union a session actor
// accepts through its sink.
type CommandKind string

const (
	CmdSendUserMessage  CommandKind = "send_user_message"
	CmdCancelOperation  CommandKind = "cancel_operation"
	CmdApproveTool      CommandKind = "approve_tool"
	CmdDenyTool         CommandKind = "deny_tool"
	CmdSetModel         CommandKind = "set_model"
	CmdRunSlashCommand  CommandKind = "run_slash_command"
	CmdRegisterMcp      CommandKind = "register_mcp_backend"
	CmdUnregisterMcp    CommandKind = "unregister_mcp_backend"
	CmdEditMessage      CommandKind = "edit_message"
	CmdShareSession     CommandKind = "share_session"
	CmdUnshareSession   CommandKind = "unshare_session"
	CmdRunCustomCommand CommandKind = "run_custom_command"
)

// SlashCommand names the built-in slash commands RunSlashCommand
// accepts.
type SlashCommand string

const (
	SlashCompact SlashCommand = "compact"
	SlashClear   SlashCommand = "clear"
	SlashModel   SlashCommand = "model"
)

// Command is one request made of a session actor. Exactly the field(s)
// matching Kind are meaningful; the rest are zero. Once the command has
// been applied (or rejected) the actor sends on Result either nil or an
// error describing why it was not applied; Result is never closed.
type Command struct {
	Kind CommandKind

	// CmdSendUserMessage
	Content []types.UserBlock

	// CmdApproveTool / CmdDenyTool
	CallID types.ToolCallID
	Scope  approval.Scope

	// CmdSetModel
	Model string

	// CmdRunSlashCommand
	Slash SlashCommand

	// CmdRunCustomCommand
	CustomCmdName string
	CustomCmdArgs string

	// CmdRegisterMcp / CmdUnregisterMcp
	ServerName string
	Transport  McpTransport

	// CmdEditMessage
	TargetID   types.MessageID
	NewContent []types.UserBlock

	Result chan error
}

// reply sends err (which may be nil) on Result, if the caller is
// listening, without blocking the actor if it isn't.
func (c Command) reply(err error) {
	if c.Result == nil {
		return
	}
	select {
	case c.Result <- err:
	default:
	}
}
