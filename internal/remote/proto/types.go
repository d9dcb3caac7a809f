// Package proto holds the Go-native mirror of steer.proto: one struct
// per message, field-for-field, marshaled over the wire by the
// "steerjson" grpc codec (see internal/remote/codec.go) instead of by
// generated protobuf bindings. Field tags use the proto field's
// lower_snake_case name so the JSON on the wire matches what
// protojson would produce from the real generated types.
package proto

import (
	"github.com/BrendanGraham14/steer-sub008/internal/llm"
	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

type CreateSessionRequest struct {
	Directory string `json:"directory"`
}

type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

type ListSessionsRequest struct{}

type SessionMeta struct {
	ID           string `json:"id"`
	CreatedAt    int64  `json:"created_at"`
	UpdatedAt    int64  `json:"updated_at"`
	Title        string `json:"title"`
	LastModel    string `json:"last_model"`
	MessageCount int32  `json:"message_count"`
}

type ListSessionsResponse struct {
	Sessions []SessionMeta `json:"sessions"`
}

type DeleteSessionRequest struct {
	SessionID string `json:"session_id"`
}

type DeleteSessionResponse struct{}

type SnapshotRequest struct {
	SessionID string `json:"session_id"`
	Directory string `json:"directory"`
}

type SnapshotResponse struct {
	History       []types.Message `json:"history"`
	ApprovedTools []string        `json:"approved_tools"`
	Model         string          `json:"model"`
	Title         string          `json:"title"`
	ShareToken    string          `json:"share_token,omitempty"`
}

type UserBlock struct {
	Kind  string            `json:"kind"`
	Text  string            `json:"text"`
	Image *types.ImageRef   `json:"image,omitempty"`
	Cmd   *types.CommandTx  `json:"cmd,omitempty"`
}

type McpTransport struct {
	Kind    string            `json:"kind"`
	Command []string          `json:"command"`
	Args    []string          `json:"args"`
	Host    string            `json:"host"`
	Port    int32             `json:"port"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

type SendCommandRequest struct {
	SessionID  string        `json:"session_id"`
	Directory  string        `json:"directory"`
	Kind       string        `json:"kind"`
	Content    []UserBlock   `json:"content"`
	CallID     string        `json:"call_id"`
	Scope      string        `json:"scope"`
	Model      string        `json:"model"`
	Slash      string        `json:"slash"`
	ServerName string        `json:"server_name"`
	Transport  *McpTransport `json:"transport,omitempty"`
	TargetID   string        `json:"target_id"`
	NewContent []UserBlock   `json:"new_content"`
}

type SendCommandResponse struct {
	Error string `json:"error,omitempty"`
}

type SubscribeRequest struct {
	SessionID string `json:"session_id"`
	Directory string `json:"directory"`
}

type ClientEvent struct {
	Kind      string      `json:"kind"`
	SessionID string      `json:"session_id"`
	OpID      string      `json:"op_id"`
	Event     *types.Event `json:"event,omitempty"`
	Delta     *llm.Delta  `json:"delta,omitempty"`
	State     string      `json:"state"`
	Level     string      `json:"level"`
	Message   string      `json:"message"`
	Dropped   int32       `json:"dropped"`
}
