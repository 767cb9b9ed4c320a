// Package httpadapter serves toolbox tools over plain HTTP. The path names the
// tool and the response body is its text result.
package httpadapter

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/germanamz/mystic/pkg/catalog"
	"github.com/germanamz/mystic/pkg/tools/toolbox"
)

// RequestIDHeader carries the request id. A client supplied id is echoed.
const RequestIDHeader = "X-Request-Id"

const defaultMaxBody = 1 << 20

// Adapter is an http.Handler dispatching requests to a toolbox.
//
//	GET  /        lists tools as JSON
//	POST /{name}  invokes a tool with a JSON object body
//	GET  /{name}  invokes a tool with query parameters as arguments
type Adapter struct {
	tb      *toolbox.ToolBox
	log     *slog.Logger
	maxBody int64
	mux     *http.ServeMux
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger sets the request logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// WithMaxBody limits the size of request bodies.
func WithMaxBody(n int64) Option {
	return func(a *Adapter) { a.maxBody = n }
}

// New creates an Adapter serving tb.
func New(tb *toolbox.ToolBox, opts ...Option) *Adapter {
	a := &Adapter{
		tb:      tb,
		log:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxBody: defaultMaxBody,
		mux:     http.NewServeMux(),
	}
	for _, o := range opts {
		o(a)
	}

	a.mux.HandleFunc("GET /{$}", a.list)
	a.mux.HandleFunc("GET /{name}", a.call)
	a.mux.HandleFunc("POST /{name}", a.call)

	return a
}

func (a *Adapter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.Header.Get(RequestIDHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, id)

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()

	a.mux.ServeHTTP(rec, r)

	a.log.InfoContext(r.Context(), "request handled",
		"request_id", id,
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start),
	)
}

func (a *Adapter) list(w http.ResponseWriter, _ *http.Request) {
	body, err := catalog.JSON(catalog.Build(a.tb))
	if err != nil {
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (a *Adapter) call(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	t, ok := a.tb.Get(name)
	if !ok {
		writeText(w, http.StatusNotFound, "Not Found")
		return
	}

	args, err := a.arguments(w, r, t)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		writeText(w, status, err.Error())
		return
	}

	resp := a.tb.Dispatch(r.Context(), name, args)
	writeText(w, StatusCode(resp), resp.Text)
}

func (a *Adapter) arguments(w http.ResponseWriter, r *http.Request, t toolbox.Tool) (json.RawMessage, error) {
	if r.Method == http.MethodGet {
		return json.Marshal(QueryArguments(r.URL.Query(), t.InputSchema))
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, a.maxBody))
	if err != nil {
		return nil, err
	}

	return body, nil
}

// StatusCode maps a dispatch outcome to an HTTP status.
func StatusCode(resp toolbox.Response) int {
	switch resp.Status {
	case toolbox.StatusOK:
		return http.StatusOK
	case toolbox.StatusNotFound:
		return http.StatusNotFound
	}

	switch {
	case errors.Is(resp.Err, toolbox.ErrInvalidArguments):
		return http.StatusBadRequest
	case errors.Is(resp.Err, toolbox.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
