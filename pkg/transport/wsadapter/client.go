package wsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/germanamz/mystic/pkg/catalog"
)

// Client sends requests to an Adapter over one connection. Calls are
// serialised.
type Client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// Dial connects to an Adapter. http and https URLs are mapped to ws and wss.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, wsURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("wsadapter: dial: %w", err)
	}

	return &Client{conn: conn}, nil
}

// Call invokes a tool and returns the adapter's response.
func (c *Client) Call(ctx context.Context, tool string, args json.RawMessage) (Response, error) {
	return c.roundTrip(ctx, Request{Method: MethodCall, Tool: tool, Arguments: args})
}

// List returns the tools served by the adapter.
func (c *Client) List(ctx context.Context) ([]catalog.Entry, error) {
	resp, err := c.roundTrip(ctx, Request{Method: MethodList})
	if err != nil {
		return nil, err
	}

	return resp.Tools, nil
}

// Close closes the connection normally.
func (c *Client) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) roundTrip(ctx context.Context, req Request) (Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	req.ID = uuid.NewString()
	if err := wsjson.Write(ctx, c.conn, req); err != nil {
		return Response{}, fmt.Errorf("wsadapter: write: %w", err)
	}

	var resp Response
	if err := wsjson.Read(ctx, c.conn, &resp); err != nil {
		return Response{}, fmt.Errorf("wsadapter: read: %w", err)
	}
	if resp.ID != req.ID {
		return resp, fmt.Errorf("wsadapter: response id %q does not match request %q", resp.ID, req.ID)
	}

	return resp, nil
}

func wsURL(u string) string {
	if strings.HasPrefix(u, "https://") {
		return "wss://" + u[len("https://"):]
	}

	if strings.HasPrefix(u, "http://") {
		return "ws://" + u[len("http://"):]
	}

	return u
}
