package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server serves the daemon's /metrics endpoint on its own registry
// (never the global default one, so more than one Server can exist in
// the same process without a duplicate-registration panic).
type Server struct {
	Metrics *Metrics

	registry   *prometheus.Registry
	httpServer *http.Server
}

// NewServer builds a Server bound to address, with host health and
// protocol metrics both registered and ready to record.
func NewServer(address string) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(NewHostCollector())
	metrics := NewMetrics(registry)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		Metrics:    metrics,
		registry:   registry,
		httpServer: &http.Server{Addr: address, Handler: mux},
	}
}

// Handler returns the server's /metrics http.Handler directly, for
// tests and for embedding into an existing mux instead of binding a
// dedicated listener.
func (s *Server) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ListenAndServe blocks serving /metrics until the server is shut down.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
