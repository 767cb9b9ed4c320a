// Package wsadapter serves toolbox tools over a WebSocket connection carrying
// JSON request and response messages.
package wsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/germanamz/mystic/pkg/catalog"
	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

// Methods understood by the adapter.
const (
	MethodCall = "call"
	MethodList = "list"
)

// StatusBadRequest is reported for messages the adapter cannot act on.
const StatusBadRequest = "bad_request"

// Request is one message sent by a client.
type Request struct {
	ID        string          `json:"id,omitempty"`
	Method    string          `json:"method"`
	Tool      string          `json:"tool,omitempty"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Response answers one Request. Status is "ok", "not_found", "failed", or
// "bad_request".
type Response struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Body   string          `json:"body,omitempty"`
	Error  string          `json:"error,omitempty"`
	Tools  []catalog.Entry `json:"tools,omitempty"`
}

// Adapter is an http.Handler upgrading requests to WebSocket connections.
// Messages on one connection are handled in order.
type Adapter struct {
	tb         *toolbox.ToolBox
	log        *slog.Logger
	acceptOpts *websocket.AcceptOptions
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the connection logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithOriginPatterns allows cross-origin connections from the given host
// patterns.
func WithOriginPatterns(patterns ...string) Option {
	return func(a *Adapter) { a.acceptOpts.OriginPatterns = patterns }
}

// New creates an Adapter serving tb.
func New(tb *toolbox.ToolBox, opts ...Option) *Adapter {
	a := &Adapter{
		tb:         tb,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		acceptOpts: &websocket.AcceptOptions{},
	}
	for _, o := range opts {
		o(a)
	}

	return a
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, a.acceptOpts)
	if err != nil {
		a.log.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	connID := uuid.NewString()
	a.log.InfoContext(r.Context(), "websocket connected", "conn_id", connID, "remote", r.RemoteAddr)

	err = a.serve(r.Context(), conn)

	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		a.log.InfoContext(r.Context(), "websocket closed", "conn_id", connID)
	default:
		if err != nil && !errors.Is(err, context.Canceled) {
			a.log.WarnContext(r.Context(), "websocket closed with error", "conn_id", connID, "error", err)
		}
	}
}

func (a *Adapter) serve(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		resp := Response{Status: StatusBadRequest}
		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			resp.Error = "malformed request: " + err.Error()
		} else {
			resp = a.handle(ctx, req)
		}

		if err := wsjson.Write(ctx, conn, resp); err != nil {
			return err
		}
	}
}

func (a *Adapter) handle(ctx context.Context, req Request) Response {
	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}

	switch req.Method {
	case MethodList:
		return Response{ID: id, Status: toolbox.StatusOK.String(), Tools: catalog.Build(a.tb)}
	case MethodCall:
		resp := a.tb.Dispatch(ctx, req.Tool, req.Arguments)
		out := Response{ID: id, Status: resp.Status.String()}
		switch resp.Status {
		case toolbox.StatusOK:
			out.Body = resp.Text
		case toolbox.StatusNotFound:
			out.Error = "Not Found"
		default:
			out.Error = resp.Text
		}
		a.log.DebugContext(ctx, "websocket call", "id", id, "tool", req.Tool, "status", out.Status)
		return out
	default:
		return Response{ID: id, Status: StatusBadRequest, Error: "unknown method " + `"` + req.Method + `"`}
	}
}
