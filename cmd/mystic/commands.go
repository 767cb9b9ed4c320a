package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/germanamz/mystic/pkg/catalog"
	"github.com/germanamz/mystic/pkg/engine"
	"github.com/germanamz/mystic/pkg/tools/mcpclient"
	"github.com/germanamz/mystic/pkg/tools/toolbox"
	"github.com/germanamz/mystic/pkg/transport/wsadapter"
)

type serveOptions struct {
	config  string
	backend string
	host    string
	port    int
}

func runServe(ctx context.Context, opts serveOptions) error {
	a, err := newApp(opts.config, os.Stderr)
	if err != nil {
		return err
	}

	cfg := a.cfg
	if opts.backend != "" {
		cfg.Server.Backend = opts.backend
	}
	if opts.host != "" {
		cfg.Server.Host = opts.host
	}
	if opts.port != 0 {
		cfg.Server.Port = opts.port
	}

	eng, err := engine.New(cfg, a.tb, engine.WithLogger(a.log))
	if err != nil {
		return err
	}

	return eng.Run(ctx)
}

type toolsOptions struct {
	config string
	format string
	url    string
	raw    bool
}

func runTools(ctx context.Context, opts toolsOptions, out io.Writer) error {
	f, err := catalog.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	var entries []catalog.Entry
	if opts.url != "" {
		entries, err = remoteEntries(ctx, opts.url)
	} else {
		entries, err = localEntries(opts.config)
	}
	if err != nil {
		return err
	}

	return writeEntries(out, entries, f, opts.raw)
}

func localEntries(configPath string) ([]catalog.Entry, error) {
	a, err := newApp(configPath, io.Discard)
	if err != nil {
		return nil, err
	}

	return catalog.Build(a.tb.Filter(a.cfg.Server.Tools)), nil
}

// remoteEntries lists the tools of a running server through its websocket or
// http backend.
func remoteEntries(ctx context.Context, serverURL string) ([]catalog.Entry, error) {
	if strings.HasPrefix(serverURL, "ws://") || strings.HasPrefix(serverURL, "wss://") {
		c, err := wsadapter.Dial(ctx, serverURL)
		if err != nil {
			return nil, err
		}
		defer c.Close()

		return c.List(ctx)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(serverURL, "/")+"/", nil)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list tools: unexpected status %s", resp.Status)
	}

	var entries []catalog.Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("list tools: decode: %w", err)
	}

	return entries, nil
}

// writeEntries renders entries in format f. Markdown is styled for the
// terminal unless raw is set.
func writeEntries(out io.Writer, entries []catalog.Entry, f catalog.Format, raw bool) error {
	width := terminalWidth(100)

	if f == catalog.FormatMarkdown && !raw {
		_, err := io.WriteString(out, renderMarkdown(catalog.Markdown(entries), width))
		return err
	}

	return catalog.Write(out, entries, f, width)
}

type callOptions struct {
	config      string
	url         string
	interactive bool
}

func runCall(ctx context.Context, opts callOptions, args []string, out, errOut io.Writer) error {
	if len(args) == 0 {
		return errors.New("usage: mystic call <tool> [json-arguments]")
	}
	name := args[0]

	raw, err := parseArguments(strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	var res callResult
	if opts.url != "" {
		if opts.interactive {
			return errors.New("interactive arguments need the local toolbox; drop --url")
		}
		res, err = callRemote(ctx, opts.url, name, raw)
	} else {
		res, err = callLocalTool(ctx, opts, name, raw)
	}
	if err != nil {
		return err
	}

	return printResult(out, errOut, res)
}

func callLocalTool(ctx context.Context, opts callOptions, name string, raw json.RawMessage) (callResult, error) {
	a, err := newApp(opts.config, os.Stderr)
	if err != nil {
		return callResult{}, err
	}

	if opts.interactive {
		t, ok := a.tb.Get(name)
		if !ok {
			return callResult{}, fmt.Errorf("tool %q not found", name)
		}
		raw, err = promptArguments(toolNameStyle.Render(t.Name), t.InputSchema)
		if err != nil {
			return callResult{}, err
		}
	}

	return callLocal(ctx, a.tb, name, raw)
}

type checkOptions struct {
	config   string
	snapshot string
	update   bool
}

func runCheck(opts checkOptions, out io.Writer) error {
	entries, err := localEntries(opts.config)
	if err != nil {
		return err
	}

	if opts.update {
		if err := catalog.WriteSnapshot(opts.snapshot, entries); err != nil {
			return err
		}
		fmt.Fprintln(out, dimStyle.Render("wrote "+opts.snapshot))
		return nil
	}

	diff, err := catalog.Check(opts.snapshot, entries)
	if errors.Is(err, catalog.ErrDrift) {
		fmt.Fprint(out, colorDiff(diff))
		return err
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, resultStyle.Render(fmt.Sprintf("%d tools match %s", len(entries), opts.snapshot)))
	return nil
}

type inspectOptions struct {
	url    string
	sse    string
	cmd    string
	format string
	raw    bool
	call   string
	args   string
}

// runInspect connects to an MCP server, lists its tools, and optionally calls
// one of them through a local toolbox.
func runInspect(ctx context.Context, opts inspectOptions, out, errOut io.Writer) error {
	client, err := connectMCP(ctx, opts)
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	tb := toolbox.New()
	if err := tb.Add(tools...); err != nil {
		return err
	}

	if opts.call != "" {
		raw, err := parseArguments(opts.args)
		if err != nil {
			return err
		}
		res, err := callLocal(ctx, tb, opts.call, raw)
		if err != nil {
			return err
		}
		return printResult(out, errOut, res)
	}

	f, err := catalog.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	return writeEntries(out, catalog.Build(tb), f, opts.raw)
}

func connectMCP(ctx context.Context, opts inspectOptions) (*mcpclient.MCPClient, error) {
	switch {
	case opts.url != "":
		return mcpclient.NewHTTP(ctx, opts.url)
	case opts.sse != "":
		return mcpclient.NewSSE(ctx, opts.sse)
	case strings.TrimSpace(opts.cmd) != "":
		fields := strings.Fields(opts.cmd)
		return mcpclient.New(ctx, fields[0], fields[1:]...)
	default:
		return nil, errors.New("one of --url, --sse, or --cmd is required")
	}
}
