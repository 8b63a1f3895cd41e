package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/germanamz/opwire/pkg/ops"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client imports a remote MCP server's tools as operation specs. Imported
// specs carry the remote tool's JSON Schema verbatim and pass arguments
// through untouched: the remote server owns their validation.
type Client struct {
	client  *mcp.Client
	session *mcp.ClientSession
}

// NewCommand spawns an MCP server process and returns a connected client.
// The SDK handles initialization automatically during Connect.
func NewCommand(ctx context.Context, command string, args ...string) (*Client, error) {
	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command is caller-provided by design
	}

	return newFromTransport(ctx, transport)
}

// NewSSE connects to an SSE-based MCP server at the given URL.
func NewSSE(ctx context.Context, url string) (*Client, error) {
	transport := &mcp.SSEClientTransport{Endpoint: url}

	return newFromTransport(ctx, transport)
}

// newFromTransport creates a Client using the given transport. Used by the
// constructors and by tests with InMemoryTransport.
func newFromTransport(ctx context.Context, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "opwire",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: connect: %w", err)
	}

	return &Client{client: client, session: session}, nil
}

// Specs fetches the remote tool list and returns it as operation specs,
// optionally prefixing names to keep imports from colliding with local
// operations (e.g. prefix "jira" yields "jira.create_issue").
func (c *Client) Specs(ctx context.Context, prefix string) ([]ops.Spec, error) {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("mcpbridge: list tools: %w", err)
	}

	specs := make([]ops.Spec, 0, len(result.Tools))
	for _, tool := range result.Tools {
		spec, err := c.importTool(tool, prefix)
		if err != nil {
			return nil, fmt.Errorf("mcpbridge: import tool %q: %w", tool.Name, err)
		}
		specs = append(specs, spec)
	}

	return specs, nil
}

// CallTool calls a named tool on the remote server.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	result, err := c.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("mcpbridge: call tool: %w", err)
	}

	text := extractText(result)

	if result.IsError {
		return "", fmt.Errorf("mcpbridge: tool error: %s", text)
	}

	return text, nil
}

// Close terminates the session and releases resources, including any
// spawned server process.
func (c *Client) Close() error {
	return c.session.Close()
}

// importTool converts one SDK tool into a passthrough operation spec whose
// handler calls back through the session.
func (c *Client) importTool(tool *mcp.Tool, prefix string) (ops.Spec, error) {
	schema, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return ops.Spec{}, fmt.Errorf("marshal input schema: %w", err)
	}

	name := tool.Name
	if prefix != "" {
		name = prefix + "." + name
	}
	remote := tool.Name

	return ops.Spec{
		Name:        name,
		Description: tool.Description,
		RawSchema:   schema,
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			return c.CallTool(ctx, remote, args)
		},
	}, nil
}

// extractText joins all TextContent items from a CallToolResult with newlines.
func extractText(result *mcp.CallToolResult) string {
	var texts []string
	for _, item := range result.Content {
		if tc, ok := item.(*mcp.TextContent); ok {
			texts = append(texts, tc.Text)
		}
	}

	return strings.Join(texts, "\n")
}
