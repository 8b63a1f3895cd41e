// Package mcpbridge connects the operation bridge to the Model Context
// Protocol in both directions: Server advertises a dispatcher's operations
// to MCP clients, and Client imports a remote MCP server's tools as
// registry specs.
package mcpbridge

import (
	"context"
	"encoding/json"
	"io"

	"github.com/germanamz/opwire/pkg/bridge"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server serves a dispatcher's operations over MCP using the official Go SDK.
type Server struct {
	server *mcp.Server
}

// NewServer creates a Server advertising every operation the dispatcher
// knows about. Calls route through the dispatcher, so validation and the
// failure taxonomy apply to MCP callers exactly as to HTTP callers.
func NewServer(name, version string, d *bridge.Dispatcher) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	for _, info := range d.Operations() {
		server.AddTool(&mcp.Tool{
			Name:        info.Name,
			Description: info.Description,
			InputSchema: info.Schema,
		}, toolHandler(d, info.Name))
	}

	return &Server{server: server}
}

// Serve reads MCP requests from in and writes responses to out. It blocks
// until ctx is cancelled or the transport closes.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// run starts the server with the given transport. Exported via Serve for
// production use; called directly by tests with InMemoryTransport.
func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// toolHandler adapts one dispatcher operation to an SDK ToolHandler. A
// failure envelope becomes an IsError tool result carrying kind and message.
func toolHandler(d *bridge.Dispatcher, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return errorResult(string(bridge.KindMalformedRequest) + ": " + err.Error()), nil
			}
		}

		res := d.Dispatch(ctx, bridge.Request{Operation: name, Arguments: args})
		if !res.OK {
			return errorResult(string(res.Kind) + ": " + res.Message), nil
		}

		text, err := payloadText(res.Payload)
		if err != nil {
			return errorResult("encoding payload: " + err.Error()), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: text}},
		}, nil
	}
}

// payloadText renders a payload for MCP text content: strings pass through,
// anything structured is JSON-encoded.
func payloadText(payload any) (string, error) {
	if s, ok := payload.(string); ok {
		return s, nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	return string(data), nil
}

func errorResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
