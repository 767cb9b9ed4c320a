package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/germanamz/mystic/pkg/tools/toolbox"
	"github.com/germanamz/mystic/pkg/transport/wsadapter"
)

// callResult is the outcome of a tool call, local or remote.
type callResult struct {
	ok   bool
	text string
}

// callLocal dispatches name on the in-process toolbox.
func callLocal(ctx context.Context, tb *toolbox.ToolBox, name string, args json.RawMessage) (callResult, error) {
	resp := tb.Dispatch(ctx, name, args)
	switch resp.Status {
	case toolbox.StatusOK:
		return callResult{ok: true, text: resp.Text}, nil
	case toolbox.StatusNotFound:
		return callResult{}, fmt.Errorf("tool %q not found", name)
	default:
		return callResult{text: resp.Text}, nil
	}
}

// callRemote calls name on a running server. http(s) URLs go through the
// http backend and ws(s) URLs through the websocket backend.
func callRemote(ctx context.Context, serverURL, name string, args json.RawMessage) (callResult, error) {
	switch {
	case strings.HasPrefix(serverURL, "ws://"), strings.HasPrefix(serverURL, "wss://"):
		return callWebSocket(ctx, serverURL, name, args)
	case strings.HasPrefix(serverURL, "http://"), strings.HasPrefix(serverURL, "https://"):
		return callHTTP(ctx, serverURL, name, args)
	default:
		return callResult{}, fmt.Errorf("unsupported server url %q", serverURL)
	}
}

func callHTTP(ctx context.Context, serverURL, name string, args json.RawMessage) (callResult, error) {
	if args == nil {
		args = json.RawMessage(`{}`)
	}

	endpoint := strings.TrimRight(serverURL, "/") + "/" + name
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(args))
	if err != nil {
		return callResult{}, fmt.Errorf("call %s: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return callResult{}, fmt.Errorf("call %s: %w", name, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return callResult{}, fmt.Errorf("call %s: read response: %w", name, err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return callResult{ok: true, text: string(body)}, nil
	case http.StatusNotFound:
		return callResult{}, fmt.Errorf("tool %q not found", name)
	default:
		return callResult{text: string(body)}, nil
	}
}

func callWebSocket(ctx context.Context, serverURL, name string, args json.RawMessage) (callResult, error) {
	c, err := wsadapter.Dial(ctx, serverURL)
	if err != nil {
		return callResult{}, err
	}
	defer c.Close()

	resp, err := c.Call(ctx, name, args)
	if err != nil {
		return callResult{}, err
	}

	switch resp.Status {
	case toolbox.StatusOK.String():
		return callResult{ok: true, text: resp.Body}, nil
	case toolbox.StatusNotFound.String():
		return callResult{}, fmt.Errorf("tool %q not found", name)
	default:
		return callResult{text: resp.Error}, nil
	}
}

// printResult writes a successful result to out and a failure to errOut.
func printResult(out, errOut io.Writer, res callResult) error {
	if res.ok {
		_, err := fmt.Fprintln(out, res.text)
		return err
	}

	fmt.Fprintln(errOut, errorStyle.Render(res.text))
	return fmt.Errorf("tool call failed")
}
