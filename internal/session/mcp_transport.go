package session

import (
	"fmt"

	"github.com/BrendanGraham14/steer-sub008/internal/mcp"
)

// transportToConfig lowers a RegisterMcpBackend command's transport
// description onto the mcp package's Config, which only knows how to
// dial stdio subprocesses and SSE endpoints. Tcp and Http both map onto
// the SSE/remote path: a plain-HTTP JSON-RPC transport and a raw-TCP
// framing are real gaps against the external protocol contract, noted
// in DESIGN.md rather than silently pretended away.
func transportToConfig(t McpTransport) (*mcp.Config, error) {
	switch t.Kind {
	case McpTransportStdio:
		if len(t.Command) == 0 {
			return nil, fmt.Errorf("mcp: stdio transport requires a command")
		}
		return &mcp.Config{
			Enabled: true,
			Type:    mcp.TransportTypeStdio,
			Command: append(append([]string{}, t.Command...), t.Args...),
		}, nil

	case McpTransportSse, McpTransportHttp:
		if t.URL == "" {
			return nil, fmt.Errorf("mcp: %s transport requires a url", t.Kind)
		}
		return &mcp.Config{
			Enabled: true,
			Type:    mcp.TransportTypeRemote,
			URL:     t.URL,
			Headers: t.Headers,
		}, nil

	case McpTransportTcp:
		if t.Host == "" || t.Port == 0 {
			return nil, fmt.Errorf("mcp: tcp transport requires host and port")
		}
		return &mcp.Config{
			Enabled: true,
			Type:    mcp.TransportTypeRemote,
			URL:     fmt.Sprintf("http://%s:%d", t.Host, t.Port),
		}, nil

	default:
		return nil, fmt.Errorf("mcp: unknown transport kind %q", t.Kind)
	}
}
