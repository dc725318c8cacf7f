// Package server exposes the correction engine over HTTP. This is the
// surrounding-application surface: the engine packages themselves perform no
// network I/O.
//
// Routes:
//
//	POST /v1/correct — correct a single hypothesis
//	GET  /metrics    — Prometheus scrape endpoint
//	GET  /healthz    — liveness probe
//	GET  /readyz     — readiness probe
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/retellabs/retell/internal/correct"
	"github.com/retellabs/retell/internal/health"
	"github.com/retellabs/retell/internal/observe"
)

// shutdownTimeout bounds how long Shutdown waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// correctRequest is the JSON body of POST /v1/correct.
type correctRequest struct {
	Hypothesis string `json:"hypothesis"`
}

// errorResponse is the JSON body of error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the correction HTTP API.
type Server struct {
	corrector *correct.Corrector
	httpSrv   *http.Server
}

// New builds a [Server] listening on addr. checkers are wired into the
// /readyz readiness endpoint.
//
// The correction route is instrumented per its mux pattern; health probes
// and the Prometheus scrape stay out of spans and request logs, they fire
// every few seconds and carry no correction work.
func New(addr string, corrector *correct.Corrector, metrics *observe.Metrics, checkers ...health.Checker) *Server {
	s := &Server{corrector: corrector}

	const correctRoute = "POST /v1/correct"
	mux := http.NewServeMux()
	mux.Handle(correctRoute, observe.Instrument(correctRoute, metrics, http.HandlerFunc(s.handleCorrect)))
	mux.Handle("GET /metrics", promhttp.Handler())
	health.New(checkers...).Register(mux)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the server's root handler, instrumentation included.
// Exposed for tests driving the API through httptest.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run starts serving and blocks until the listener fails or Shutdown is
// called. A server closed by Shutdown returns nil.
func (s *Server) Run() error {
	slog.Info("http server listening", "addr", s.httpSrv.Addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(ctx)
}

// handleCorrect decodes the request body, runs the corrector, and replies
// with the [correct.Result] as JSON.
func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	var req correctRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
		return
	}

	result, err := s.corrector.Correct(r.Context(), req.Hypothesis)
	if err != nil {
		observe.Logger(r.Context()).Error("correction failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "correction failed"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
	}
}
