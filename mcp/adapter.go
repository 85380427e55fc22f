// Package mcp connects external tool catalogues speaking the Model
// Context Protocol to the interview assistant's tool registry.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hrkit/interviewbot/tools"
)

// Client wraps an MCP client session whose tools can be registered with
// the interview tool registry.
type Client struct {
	mcpClient *mcp.Client
	session   *mcp.ClientSession
	timeout   time.Duration
}

// Option configures the MCP client.
type Option func(*clientConfig)

type clientConfig struct {
	timeout time.Duration
}

// WithTimeout sets the timeout for tool execution.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// Dial starts the MCP server subprocess and connects to it over stdio.
func Dial(ctx context.Context, command string, args []string, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mcpClient := mcp.NewClient(&mcp.Implementation{
		Name:    "interviewbot",
		Version: "0.1.0",
	}, nil)

	cmd := exec.Command(command, args...)
	transport := &mcp.CommandTransport{
		Command: cmd,
	}

	session, err := mcpClient.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to MCP server: %w", err)
	}

	return &Client{
		mcpClient: mcpClient,
		session:   session,
		timeout:   cfg.timeout,
	}, nil
}

// Tools lists the server's tools wrapped for the interview registry.
func (c *Client) Tools(ctx context.Context) ([]tools.Tool, error) {
	result, err := c.session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return nil, fmt.Errorf("listing MCP tools: %w", err)
	}

	wrapped := make([]tools.Tool, 0, len(result.Tools))
	for i := range result.Tools {
		wrapped = append(wrapped, &remoteTool{
			client:  c,
			mcpTool: result.Tools[i],
		})
	}
	return wrapped, nil
}

// RegisterTools lists the server's tools and registers them all.
func (c *Client) RegisterTools(ctx context.Context, registry *tools.Registry) error {
	remote, err := c.Tools(ctx)
	if err != nil {
		return err
	}
	registry.Register(remote...)
	return nil
}

// Close closes the MCP client connection.
func (c *Client) Close() error {
	return c.session.Close()
}

// remoteTool adapts one MCP server tool to the tools.Tool interface.
type remoteTool struct {
	client  *Client
	mcpTool *mcp.Tool
}

func (t *remoteTool) Name() string {
	return t.mcpTool.Name
}

func (t *remoteTool) Description() string {
	return t.mcpTool.Description
}

func (t *remoteTool) Parameters() *jsonschema.Schema {
	schemaBytes, err := json.Marshal(t.mcpTool.InputSchema)
	if err != nil {
		return &jsonschema.Schema{Type: "object"}
	}

	var schema jsonschema.Schema
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return &jsonschema.Schema{Type: "object"}
	}
	return &schema
}

func (t *remoteTool) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	ctx, cancel := context.WithTimeout(ctx, t.client.timeout)
	defer cancel()

	var arguments map[string]any
	if err := json.Unmarshal(args, &arguments); err != nil {
		return nil, fmt.Errorf("parsing arguments: %w", err)
	}

	result, err := t.client.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.mcpTool.Name,
		Arguments: arguments,
	})
	if err != nil {
		return nil, fmt.Errorf("calling MCP tool: %w", err)
	}

	combined := flattenContent(result.Content)

	if result.IsError {
		return nil, fmt.Errorf("MCP tool error: %s", combined)
	}
	return combined, nil
}

// flattenContent extracts text from an MCP tool result. Multiple content
// items are joined with newlines; non-text content is described as text.
func flattenContent(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch item := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, item.Text)
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s, %d bytes]", item.MIMEType, len(item.Data)))
		case *mcp.EmbeddedResource:
			if item.Resource != nil {
				parts = append(parts, fmt.Sprintf("[Resource: %s]", item.Resource.URI))
			} else {
				parts = append(parts, "[Resource: embedded]")
			}
		}
	}
	return strings.Join(parts, "\n")
}
