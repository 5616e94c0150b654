// Package server exposes the SQL functions over HTTP so they can be driven
// without a database host.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/1broseidon/sqlai/internal/logging"
	"github.com/1broseidon/sqlai/udf"
	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBodyBytes bounds a request body; prompts larger than this are rejected.
const maxBodyBytes = 4 << 20

// Caller runs a named function. *udf.Adapter satisfies it.
type Caller interface {
	Call(ctx context.Context, name string, args []udf.Arg) (*udf.Result, error)
	Functions() []udf.Function
}

// Handler serves the function endpoints.
type Handler struct {
	caller Caller
	logger logging.Logger
}

// NewHandler creates a Handler.
func NewHandler(caller Caller, logger logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Handler{caller: caller, logger: logger}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)

	r.Route("/v1/functions", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/{name}", h.handleCall)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	return r
}

type errorBody struct {
	Error string `json:"error"`
}

// callResponse mirrors udf.Result. Value and ActualLen are set only for
// "value", Error only for "error".
type callResponse struct {
	Type      string  `json:"type"`
	Value     *string `json:"value,omitempty"`
	ActualLen *int    `json:"actual_len,omitempty"`
	Truncated bool    `json:"truncated,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"extension": udf.ExtensionName,
		"version":   udf.ExtensionVersion,
		"functions": h.caller.Functions(),
	})
}

func (h *Handler) handleCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	var fn *udf.Function
	for _, f := range h.caller.Functions() {
		if f.Name == name {
			f := f
			fn = &f
			break
		}
	}
	if fn == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown function: " + name})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
		return
	}
	var fields map[string]*string
	if err := sonic.ConfigStd.Unmarshal(body, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body: arguments must be strings or null"})
		return
	}

	args := make([]udf.Arg, len(fn.Params))
	for i, param := range fn.Params {
		args[i] = udf.StringPtr(fields[param])
	}

	res, err := h.caller.Call(r.Context(), name, args)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func toResponse(res *udf.Result) callResponse {
	out := callResponse{Type: res.Type.String()}
	switch res.Type {
	case udf.ResultValue:
		v, n := res.Value(), res.ActualLen
		out.Value = &v
		out.ActualLen = &n
		out.Truncated = res.Truncated
	case udf.ResultError:
		out.Error = res.ErrorMsg
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// logRequests records method, path, status and latency. Bodies carry
// credentials and are never logged.
func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.With(
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", time.Since(start),
		).Info("Handled request")
	})
}

// Serve runs an HTTP server on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, handler http.Handler, logger logging.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
