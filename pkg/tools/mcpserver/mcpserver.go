// Package mcpserver exposes the tools of a toolbox over the Model Context
// Protocol using the official MCP Go SDK.
package mcpserver

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

// MCPServer serves toolbox tools over the MCP protocol.
type MCPServer struct {
	server *mcp.Server
	tb     *toolbox.ToolBox
	log    *slog.Logger
}

// Option configures an MCPServer.
type Option func(*MCPServer)

// WithLogger sets the logger used by the server and its HTTP handlers.
func WithLogger(log *slog.Logger) Option {
	return func(s *MCPServer) { s.log = log }
}

// New creates an MCPServer with the given name and version and mounts every
// tool currently in tb. Calls are invoked through tb so its middleware and
// observer apply.
func New(name, version string, tb *toolbox.ToolBox, opts ...Option) *MCPServer {
	s := &MCPServer{tb: tb}
	for _, o := range opts {
		o(s)
	}

	var serverOpts *mcp.ServerOptions
	if s.log != nil {
		serverOpts = &mcp.ServerOptions{Logger: s.log}
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, serverOpts)

	s.Register(tb.Tools()...)

	return s
}

// Register mounts tools on the server. Tools whose input schema is not an
// object cannot be described over MCP and are skipped.
func (s *MCPServer) Register(tools ...toolbox.Tool) {
	for _, t := range tools {
		if t.InputSchema == nil || t.InputSchema.Type != "object" {
			if s.log != nil {
				s.log.Warn("skipping tool without an object input schema", "tool", t.Name)
			}
			continue
		}
		s.server.AddTool(toSDKTool(t), s.toSDKHandler(t))
	}
}

// Serve starts serving MCP requests. It reads requests from in and writes
// responses to out. It blocks until ctx is cancelled or the transport closes.
func (s *MCPServer) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// HTTPHandler returns a handler serving the streamable HTTP transport.
func (s *MCPServer) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{Logger: s.log})
}

// run starts the server with the given transport. Exported via Serve for
// production use; called directly by tests with InMemoryTransport.
func (s *MCPServer) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// structured reports whether a tool's results can be sent as structured
// content. MCP only accepts object output schemas.
func structured(t toolbox.Tool) bool {
	return t.OutputSchema != nil && t.OutputSchema.Type == "object"
}

// toSDKTool converts a toolbox.Tool to an SDK *mcp.Tool.
func toSDKTool(t toolbox.Tool) *mcp.Tool {
	tool := &mcp.Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema,
	}
	if structured(t) {
		tool.OutputSchema = t.OutputSchema
	}

	return tool
}

// toSDKHandler invokes t through the toolbox for each MCP call.
func (s *MCPServer) toSDKHandler(t toolbox.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := s.tb.Invoke(ctx, t, req.Params.Arguments)
		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		result := &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: res.Text}},
		}
		if structured(t) {
			result.StructuredContent = res.Value
		}

		return result, nil
	}
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
