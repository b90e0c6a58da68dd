// Package mcpclient adapts an MCP tool server to the orchestrator's
// tool-provider boundary. The wire protocol is owned by the library; this
// package only translates catalogs, arguments, and results.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dbchat-dev/dbchat/internal/chat"
	"github.com/dbchat-dev/dbchat/internal/telemetry"
)

const (
	clientName    = "dbchat"
	clientVersion = "0.1.0"
)

// Client wraps an MCP client connection to a single tool server.
type Client struct {
	cli        *client.Client
	needsStart bool
}

// NewStdio spawns the given command as a child process and connects to it
// over stdin/stdout. The transport starts immediately; call Connect to run
// the protocol handshake.
func NewStdio(command string, env []string, args ...string) (*Client, error) {
	cli, err := client.NewStdioMCPClient(command, env, args...)
	if err != nil {
		return nil, fmt.Errorf("mcp: spawn %s: %w", command, err)
	}
	return &Client{cli: cli}, nil
}

// NewInProcess connects directly to an in-memory server, bypassing any
// transport. Used by tests and embedded setups.
func NewInProcess(srv *server.MCPServer) (*Client, error) {
	cli, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, fmt.Errorf("mcp: in-process client: %w", err)
	}
	return &Client{cli: cli, needsStart: true}, nil
}

// Connect runs the MCP initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	if c.needsStart {
		if err := c.cli.Start(ctx); err != nil {
			return fmt.Errorf("mcp: start: %w", err)
		}
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    clientName,
		Version: clientVersion,
	}

	if _, err := c.cli.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("mcp: initialize: %w", err)
	}
	return nil
}

// Catalog fetches the server's tool list. Fetched once at session start and
// treated as immutable for the session.
func (c *Client) Catalog(ctx context.Context) (chat.Catalog, error) {
	res, err := c.cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("mcp: list tools: %w", err)
	}

	catalog := make(chat.Catalog, 0, len(res.Tools))
	for _, t := range res.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("mcp: tool %s schema: %w", t.Name, err)
		}
		catalog = append(catalog, chat.ToolSpec{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schema,
		})
	}
	return catalog, nil
}

// Invoke runs one tool call and returns the joined text payload. A server-side
// tool failure comes back as an error whose text the caller feeds to the model.
func (c *Client) Invoke(ctx context.Context, name string, arguments []byte) (string, error) {
	var args map[string]any
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &args); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", name, err)
		}
	}
	telemetry.Verbosef("[TOOL INPUT] %s %s", name, arguments)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := c.cli.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("tool %s: %w", name, err)
	}

	text := joinTextContent(res.Content)
	telemetry.Verbosef("[TOOL OUTPUT] %s %s", name, text)
	if res.IsError {
		if text == "" {
			text = "tool execution failed"
		}
		return "", errors.New(text)
	}
	return text, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

func joinTextContent(content []mcp.Content) string {
	var parts []string
	for _, item := range content {
		if tc, ok := item.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
