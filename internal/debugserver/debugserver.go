// Package debugserver is the client's local HTTP surface: health and
// status endpoints, prometheus metrics, and the attachment upload
// handler. It binds to loopback and is disabled unless configured.
package debugserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lantern-irc/lantern/pkg/engine"
	"github.com/lantern-irc/lantern/pkg/upload"
)

// Server is the debug HTTP server.
type Server struct {
	addr   string
	logger *slog.Logger
	http   *http.Server
}

// New builds the server. uploads may be nil to disable the upload
// endpoint.
func New(addr string, eng *engine.Engine, uploads upload.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "debugserver")

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		stats := eng.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			logger.Warn("status encode failed", "err", err)
		}
	})

	r.Handle("/metrics", promhttp.Handler())

	if uploads != nil {
		r.Method(http.MethodPost, "/upload", upload.Handler(uploads, nil))
	}

	return &Server{
		addr:   addr,
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Shutdown. Blocks; run it in a goroutine.
func (s *Server) Start() error {
	s.logger.Info("debug server listening", "addr", s.addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
