// Package protocol implements the MCP client used to reach the Party Box
// tool endpoint. Connections are opened per call and closed before the
// call returns, so an idle client holds no resources and can be replaced
// by simply dropping it during recomposition.
package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"partybox/internal/config"
	"partybox/pkg/logging"
)

const probeTimeout = 10 * time.Second

// ProbeResult is the outcome of a connectivity test.
type ProbeResult struct {
	Success bool
	Latency time.Duration
	Message string
}

// Client connects to an MCP endpoint using the transport named in the
// configuration snapshot.
type Client struct {
	endpoint  string
	transport string
}

// NewClient builds a protocol client from a configuration snapshot.
func NewClient(cfg config.Snapshot) *Client {
	transport := cfg.Protocol.Transport
	if transport == "" {
		transport = config.TransportStreamableHTTP
	}
	return &Client{
		endpoint:  cfg.Protocol.Endpoint,
		transport: transport,
	}
}

// Endpoint returns the MCP endpoint this client was built with.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// connect creates and starts a transport for a single exchange. Callers
// must Close the returned client.
func (c *Client) connect(ctx context.Context) (client.MCPClient, error) {
	switch c.transport {
	case config.TransportSSE:
		sseClient, err := client.NewSSEMCPClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create SSE client: %w", err)
		}
		if err := sseClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start SSE client: %w", err)
		}
		return sseClient, nil
	case config.TransportStreamableHTTP:
		httpClient, err := client.NewStreamableHttpClient(c.endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create streamable-http client: %w", err)
		}
		if err := httpClient.Start(ctx); err != nil {
			return nil, fmt.Errorf("failed to start streamable-http client: %w", err)
		}
		return httpClient, nil
	default:
		return nil, fmt.Errorf("unknown protocol transport %q", c.transport)
	}
}

// initialize performs the MCP protocol handshake.
func (c *Client) initialize(ctx context.Context, mcpClient client.MCPClient) error {
	req := mcp.InitializeRequest{
		Params: struct {
			ProtocolVersion string                 `json:"protocolVersion"`
			Capabilities    mcp.ClientCapabilities `json:"capabilities"`
			ClientInfo      mcp.Implementation     `json:"clientInfo"`
		}{
			ProtocolVersion: "2024-11-05",
			ClientInfo: mcp.Implementation{
				Name:    "partybox-extension",
				Version: "1.0.0",
			},
			Capabilities: mcp.ClientCapabilities{},
		},
	}

	if _, err := mcpClient.Initialize(ctx, req); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	return nil
}

// TestConnection performs a one-shot round trip: connect, handshake,
// tools/list. A transport-level failure is returned as an error; a
// completed handshake that exposes no tools reports Success=false with a
// diagnostic message instead.
func (c *Client) TestConnection(ctx context.Context) (ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	start := time.Now()

	mcpClient, err := c.connect(ctx)
	if err != nil {
		return ProbeResult{}, err
	}
	defer mcpClient.Close()

	if err := c.initialize(ctx, mcpClient); err != nil {
		return ProbeResult{}, err
	}

	result, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return ProbeResult{}, fmt.Errorf("tool listing failed: %w", err)
	}

	latency := time.Since(start)
	if len(result.Tools) == 0 {
		return ProbeResult{
			Success: false,
			Latency: latency,
			Message: fmt.Sprintf("endpoint %s responded but exposes no tools", c.endpoint),
		}, nil
	}

	logging.Debug("Protocol", "Probe found %d tools at %s", len(result.Tools), c.endpoint)
	return ProbeResult{
		Success: true,
		Latency: latency,
		Message: fmt.Sprintf("connected to %s (%d tools)", c.endpoint, len(result.Tools)),
	}, nil
}

// CallTool executes a named tool against the endpoint.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]interface{}) (*mcp.CallToolResult, error) {
	mcpClient, err := c.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer mcpClient.Close()

	if err := c.initialize(ctx, mcpClient); err != nil {
		return nil, err
	}

	req := mcp.CallToolRequest{
		Params: struct {
			Name      string    `json:"name"`
			Arguments any       `json:"arguments,omitempty"`
			Meta      *mcp.Meta `json:"_meta,omitempty"`
		}{
			Name:      name,
			Arguments: args,
		},
	}

	result, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tool call failed: %w", err)
	}
	return result, nil
}
