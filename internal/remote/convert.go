package remote

import (
	"github.com/BrendanGraham14/steer-sub008/internal/approval"
	"github.com/BrendanGraham14/steer-sub008/internal/eventstore"
	"github.com/BrendanGraham14/steer-sub008/internal/remote/proto"
	"github.com/BrendanGraham14/steer-sub008/internal/session"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

func userBlocksToProto(blocks []types.UserBlock) []proto.UserBlock {
	out := make([]proto.UserBlock, len(blocks))
	for i, b := range blocks {
		out[i] = proto.UserBlock{Kind: string(b.Kind), Text: b.Text, Image: b.Image, Cmd: b.Cmd}
	}
	return out
}

func userBlocksFromProto(blocks []proto.UserBlock) []types.UserBlock {
	out := make([]types.UserBlock, len(blocks))
	for i, b := range blocks {
		out[i] = types.UserBlock{Kind: types.UserBlockKind(b.Kind), Text: b.Text, Image: b.Image, Cmd: b.Cmd}
	}
	return out
}

func transportToProto(t session.McpTransport) *proto.McpTransport {
	return &proto.McpTransport{
		Kind:    string(t.Kind),
		Command: t.Command,
		Args:    t.Args,
		Host:    t.Host,
		Port:    int32(t.Port),
		URL:     t.URL,
		Headers: t.Headers,
	}
}

func transportFromProto(t *proto.McpTransport) session.McpTransport {
	if t == nil {
		return session.McpTransport{}
	}
	return session.McpTransport{
		Kind:    session.McpTransportKind(t.Kind),
		Command: t.Command,
		Args:    t.Args,
		Host:    t.Host,
		Port:    int(t.Port),
		URL:     t.URL,
		Headers: t.Headers,
	}
}

// commandFromProto builds a session.Command from its wire form. The
// Result channel is deliberately left nil: the gRPC handler supplies its
// own before dispatching, since a channel can't cross the wire.
func commandFromProto(req *proto.SendCommandRequest) session.Command {
	return session.Command{
		Kind:       session.CommandKind(req.Kind),
		Content:    userBlocksFromProto(req.Content),
		CallID:     types.ToolCallID(req.CallID),
		Scope:      approval.Scope(req.Scope),
		Model:      req.Model,
		Slash:      session.SlashCommand(req.Slash),
		ServerName: req.ServerName,
		Transport:  transportFromProto(req.Transport),
		TargetID:   types.MessageID(req.TargetID),
		NewContent: userBlocksFromProto(req.NewContent),
	}
}

func commandToProto(sessionID types.SessionID, directory string, cmd session.Command) *proto.SendCommandRequest {
	var transport *proto.McpTransport
	if cmd.Kind == session.CmdRegisterMcp {
		transport = transportToProto(cmd.Transport)
	}
	return &proto.SendCommandRequest{
		SessionID:  string(sessionID),
		Directory:  directory,
		Kind:       string(cmd.Kind),
		Content:    userBlocksToProto(cmd.Content),
		CallID:     string(cmd.CallID),
		Scope:      string(cmd.Scope),
		Model:      cmd.Model,
		Slash:      string(cmd.Slash),
		ServerName: cmd.ServerName,
		Transport:  transport,
		TargetID:   string(cmd.TargetID),
		NewContent: userBlocksToProto(cmd.NewContent),
	}
}

func clientEventToProto(ev session.ClientEvent) *proto.ClientEvent {
	out := &proto.ClientEvent{
		Kind:      string(ev.Kind),
		SessionID: string(ev.SessionID),
		OpID:      string(ev.OpID),
		Event:     ev.Event,
		State:     ev.State,
		Level:     string(ev.Level),
		Message:   ev.Message,
		Dropped:   int32(ev.Dropped),
	}
	if ev.Kind == session.ClientEventDelta {
		d := ev.Delta
		out.Delta = &d
	}
	return out
}

func clientEventFromProto(ev *proto.ClientEvent) session.ClientEvent {
	out := session.ClientEvent{
		Kind:      session.ClientEventKind(ev.Kind),
		SessionID: types.SessionID(ev.SessionID),
		OpID:      types.OpID(ev.OpID),
		Event:     ev.Event,
		State:     ev.State,
		Level:     session.NoticeLevel(ev.Level),
		Message:   ev.Message,
		Dropped:   int(ev.Dropped),
	}
	if ev.Delta != nil {
		out.Delta = *ev.Delta
	}
	return out
}

func sessionMetaToProto(m eventstore.SessionMeta) proto.SessionMeta {
	return proto.SessionMeta{
		ID:           string(m.ID),
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Title:        m.Title,
		LastModel:    m.LastModel,
		MessageCount: int32(m.MessageCount),
	}
}
