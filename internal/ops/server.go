// Package ops serves the operational HTTP surface: health, readiness,
// Prometheus metrics, and a JSON stats snapshot.
package ops

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stratalake/bucket-indexer/internal/pkg/httputil"
)

// StatsSource exposes cumulative counters for the stats endpoint.
type StatsSource interface {
	Stats() map[string]int64
}

// Server is the operational HTTP server. It carries no indexing state; the
// pipeline stays correct if this server never starts.
type Server struct {
	stats  StatsSource
	ready  atomic.Bool
	server *http.Server
}

// NewServer builds the ops server over the given stats source.
func NewServer(stats StatsSource) *Server {
	return &Server{stats: stats}
}

// SetReady flips the readiness probe. Main sets it once the consumer is
// polling.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Routes assembles the ops router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/stats", s.handleStats)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		httputil.Error(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	httputil.OK(w, map[string]string{"status": "ready"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	if s.stats == nil {
		httputil.OK(w, map[string]int64{})
		return
	}
	httputil.OK(w, s.stats.Stats())
}

// ListenAndServe starts the HTTP server on addr and blocks until it stops.
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
