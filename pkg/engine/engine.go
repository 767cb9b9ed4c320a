package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/germanamz/mystic/pkg/telemetry"
	"github.com/germanamz/mystic/pkg/tools/mcpserver"
	"github.com/germanamz/mystic/pkg/tools/toolbox"
	"github.com/germanamz/mystic/pkg/transport/httpadapter"
	"github.com/germanamz/mystic/pkg/transport/wsadapter"
)

const shutdownTimeout = 5 * time.Second

// Engine exposes the tools of a ToolBox through the backend selected in its
// configuration.
type Engine struct {
	cfg Config
	tb  *toolbox.ToolBox
	log *slog.Logger
	in  io.Reader
	out io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine and its backends.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithStdio sets the streams the mcp-stdio backend reads requests from and
// writes responses to. Defaults to os.Stdin and os.Stdout.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(e *Engine) {
		e.in = in
		e.out = out
	}
}

// NewToolBox creates a ToolBox carrying the invoke middleware and observer
// described by cfg: logging, panic recovery, the optional invoke timeout, and
// OpenTelemetry instrumentation when telemetry is enabled.
func NewToolBox(cfg Config, log *slog.Logger) (*toolbox.ToolBox, error) {
	timeout, err := cfg.Server.Timeout()
	if err != nil {
		return nil, fmt.Errorf("engine: toolbox: %w", err)
	}

	mw := []toolbox.Middleware{toolbox.Logger(log), toolbox.Recovery()}
	if timeout > 0 {
		mw = append(mw, toolbox.Timeout(timeout))
	}

	opts := []toolbox.Option{toolbox.WithLogger(log), toolbox.WithMiddleware(mw...)}

	if cfg.Telemetry.Enabled {
		obs, err := telemetry.NewGlobalToolObserver()
		if err != nil {
			return nil, fmt.Errorf("engine: telemetry: %w", err)
		}
		opts = append(opts, toolbox.WithObserver(obs))
	}

	return toolbox.New(opts...), nil
}

// New creates an Engine serving tb. When the configuration names a subset of
// tools, only those are exposed and each must exist in tb. The HTTP and
// websocket backends look tools up per request, so later registrations on tb
// are served; the MCP backends take their tool list when Run starts.
func New(cfg Config, tb *toolbox.ToolBox, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	for _, name := range cfg.Server.Tools {
		if _, ok := tb.Get(name); !ok {
			return nil, fmt.Errorf("engine: unknown tool %q", name)
		}
	}

	e := &Engine{
		cfg: cfg,
		tb:  tb.Filter(cfg.Server.Tools),
		log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		in:  os.Stdin,
		out: os.Stdout,
	}
	for _, o := range opts {
		o(e)
	}

	return e, nil
}

// ToolBox returns the tools the engine exposes.
func (e *Engine) ToolBox() *toolbox.ToolBox {
	return e.tb
}

// Handler returns the HTTP handler of the network backends. The mcp-stdio
// backend has none.
func (e *Engine) Handler() (http.Handler, error) {
	switch e.cfg.Server.Backend {
	case BackendHTTP:
		opts := []httpadapter.Option{httpadapter.WithLogger(e.log)}
		if e.cfg.Server.MaxBody > 0 {
			opts = append(opts, httpadapter.WithMaxBody(e.cfg.Server.MaxBody))
		}
		return httpadapter.New(e.tb, opts...), nil
	case BackendWebSocket:
		return wsadapter.New(e.tb, wsadapter.WithLogger(e.log)), nil
	case BackendMCPHTTP:
		mux := http.NewServeMux()
		mux.Handle(e.cfg.Server.Path, e.mcpServer().HTTPHandler())
		return mux, nil
	default:
		return nil, fmt.Errorf("engine: backend %q has no http handler", e.cfg.Server.Backend)
	}
}

// Run serves the configured backend until ctx is cancelled. Network backends
// listen on the configured address and shut down gracefully.
func (e *Engine) Run(ctx context.Context) error {
	if e.cfg.Telemetry.Enabled && e.cfg.Telemetry.Endpoint != "" {
		shutdown, err := telemetry.InstallTracing(ctx, e.cfg.Telemetry.Endpoint, e.cfg.Name, e.cfg.Version)
		if err != nil {
			return fmt.Errorf("engine: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdown(sctx); err != nil {
				e.log.Warn("telemetry shutdown failed", "error", err)
			}
		}()
	}

	if e.cfg.Server.Backend == BackendMCPStdio {
		e.log.Info("serving tools", "backend", BackendMCPStdio, "tools", len(e.tb.Tools()))
		if err := e.mcpServer().Serve(ctx, e.in, e.out); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("engine: serve: %w", err)
		}
		return nil
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", e.cfg.Server.Addr())
	if err != nil {
		return fmt.Errorf("engine: listen: %w", err)
	}

	return e.Serve(ctx, ln)
}

// Serve serves the configured network backend on ln until ctx is cancelled.
func (e *Engine) Serve(ctx context.Context, ln net.Listener) error {
	h, err := e.Handler()
	if err != nil {
		_ = ln.Close()
		return err
	}

	// Hijacked connections outlive Shutdown; cancelling the base context ends
	// them once in-flight requests have drained.
	base, cancelBase := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelBase()

	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	e.log.Info("serving tools",
		"backend", e.cfg.Server.Backend,
		"addr", ln.Addr().String(),
		"tools", len(e.tb.Tools()),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("engine: serve: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("engine: shutdown: %w", err)
	}
	<-errCh

	e.log.Info("server stopped", "backend", e.cfg.Server.Backend)

	return nil
}

func (e *Engine) mcpServer() *mcpserver.MCPServer {
	return mcpserver.New(e.cfg.Name, e.cfg.Version, e.tb, mcpserver.WithLogger(e.log))
}
