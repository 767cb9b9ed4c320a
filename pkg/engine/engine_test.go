package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/mystic/pkg/tools/toolbox"
	"github.com/germanamz/mystic/pkg/transport/wsadapter"
)

type greetArgs struct {
	Name string `json:"name" default:"World"`
}

// Greet says hello.
func Greet(_ context.Context, in greetArgs) (string, error) {
	return "Hello, " + in.Name + "!", nil
}

func stall(ctx context.Context, _ struct{}) *toolbox.Future[string] {
	return toolbox.Go(ctx, func(ctx context.Context) (string, error) {
		select {
		case <-time.After(5 * time.Second):
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

func explode(context.Context, struct{}) (string, error) {
	panic("oven on fire")
}

func newTestToolBox(t *testing.T, cfg Config, log *slog.Logger) *toolbox.ToolBox {
	t.Helper()

	tb, err := NewToolBox(cfg, log)
	require.NoError(t, err)

	toolbox.MustRegister(tb, Greet)
	toolbox.MustRegisterAsync(tb, stall)
	toolbox.MustRegister(tb, explode)

	return tb
}

// startEngine serves an engine on an ephemeral port and returns its address.
// The engine is stopped on cleanup.
func startEngine(t *testing.T, cfg Config) string {
	t.Helper()

	tb := newTestToolBox(t, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e, err := New(cfg, tb)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- e.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Error("engine did not stop")
		}
	})

	return ln.Addr().String()
}

func TestNewToolBox_Timeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.InvokeTimeout = "20ms"
	tb := newTestToolBox(t, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	resp := tb.Dispatch(context.Background(), "stall", nil)
	assert.Equal(t, toolbox.StatusFailed, resp.Status)
	assert.ErrorIs(t, resp.Err, context.DeadlineExceeded)
}

func TestNewToolBox_RecoversAndLogs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tb := newTestToolBox(t, DefaultConfig(), log)

	resp := tb.Dispatch(context.Background(), "explode", nil)
	assert.Equal(t, toolbox.StatusFailed, resp.Status)
	assert.ErrorIs(t, resp.Err, toolbox.ErrPanic)

	out := buf.String()
	assert.Contains(t, out, "tool registered")
	assert.Contains(t, out, "tool invoked")
	assert.Contains(t, out, "tool finished with error")
	assert.Contains(t, out, "oven on fire")
}

func TestNewToolBox_Telemetry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Telemetry.Enabled = true
	tb := newTestToolBox(t, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	resp := tb.Dispatch(context.Background(), "greet", nil)
	assert.Equal(t, toolbox.StatusOK, resp.Status)
	assert.Equal(t, "Hello, World!", resp.Text)
}

func TestNewToolBox_InvalidTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.InvokeTimeout = "later"

	_, err := NewToolBox(cfg, slog.Default())
	assert.ErrorContains(t, err, "engine: toolbox")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Backend = "tornado"

	_, err := New(cfg, toolbox.New())
	assert.ErrorContains(t, err, "unsupported backend")
}

func TestNew_FiltersTools(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Tools = []string{"greet"}
	tb := newTestToolBox(t, cfg, slog.Default())

	e, err := New(cfg, tb)
	require.NoError(t, err)

	tools := e.ToolBox().Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "greet", tools[0].Name)

	// The source toolbox is untouched.
	assert.Len(t, tb.Tools(), 3)
}

func TestNew_FilteredToolsFollowLaterRegistrations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Tools = []string{"greet"}
	tb := newTestToolBox(t, cfg, slog.Default())

	e, err := New(cfg, tb)
	require.NoError(t, err)

	toolbox.MustRegister(tb, func(context.Context, greetArgs) (string, error) {
		return "Howdy", nil
	}, toolbox.WithName("greet"))
	toolbox.MustRegister(tb, func(context.Context, struct{}) (string, error) {
		return "", nil
	}, toolbox.WithName("secret"))

	resp := e.ToolBox().Dispatch(context.Background(), "greet", nil)
	require.Equal(t, toolbox.StatusOK, resp.Status)
	assert.Equal(t, "Howdy", resp.Text)

	resp = e.ToolBox().Dispatch(context.Background(), "secret", nil)
	assert.Equal(t, toolbox.StatusNotFound, resp.Status)
}

func TestNew_UnknownTool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Tools = []string{"greet", "teleport"}

	_, err := New(cfg, newTestToolBox(t, cfg, slog.Default()))
	assert.ErrorContains(t, err, `unknown tool "teleport"`)
}

func TestHandler_MCPStdioHasNone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Backend = BackendMCPStdio

	e, err := New(cfg, toolbox.New())
	require.NoError(t, err)

	_, err = e.Handler()
	assert.ErrorContains(t, err, "has no http handler")
}

func TestServe_HTTP(t *testing.T) {
	addr := startEngine(t, DefaultConfig())

	resp, err := http.Get("http://" + addr + "/greet?name=Engine")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hello, Engine!", string(body))
}

func TestServe_WebSocket(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Backend = BackendWebSocket
	addr := startEngine(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := wsadapter.Dial(ctx, "http://"+addr)
	require.NoError(t, err)
	defer c.Close()

	resp, err := c.Call(ctx, "greet", json.RawMessage(`{"name":"Socket"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "Hello, Socket!", resp.Body)
}

func TestServe_MCPHTTP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Backend = BackendMCPHTTP
	addr := startEngine(t, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "engine-test", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.StreamableClientTransport{Endpoint: "http://" + addr + "/mcp"}, nil)
	require.NoError(t, err)
	defer session.Close()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{
		Name:      "greet",
		Arguments: map[string]any{"name": "MCP"},
	})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Hello, MCP!", tc.Text)
}

func TestServe_StopsOnCancel(t *testing.T) {
	e, err := New(DefaultConfig(), toolbox.New())
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, e.Serve(ctx, ln))

	_, err = net.DialTimeout("tcp", ln.Addr().String(), time.Second)
	assert.Error(t, err)
}

func TestRun_MCPStdio(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Backend = BackendMCPStdio

	toServerR, toServerW := io.Pipe()
	fromServerR, fromServerW := io.Pipe()

	tb := newTestToolBox(t, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	e, err := New(cfg, tb, WithStdio(toServerR, fromServerW))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.Run(ctx)
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: "stdio-test", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.IOTransport{Reader: fromServerR, Writer: toServerW}, nil)
	require.NoError(t, err)

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, tools.Tools, 3)

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: "greet", Arguments: map[string]any{}})
	require.NoError(t, err)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	assert.Equal(t, "Hello, World!", tc.Text)

	_ = session.Close()
	cancel()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("stdio backend did not stop")
	}
}
