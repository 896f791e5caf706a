// Package api serves the local HTTP control surface of seek: search over
// the open catalog, snapshot selection, indexing control and Prometheus
// metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jamesainslie/seek/pkg/seek/catalog"
	"github.com/jamesainslie/seek/pkg/seek/history"
	"github.com/jamesainslie/seek/pkg/seek/logging"
	"github.com/jamesainslie/seek/pkg/seek/search"
	"github.com/jamesainslie/seek/pkg/seek/session"
)

// Options configures a Server.
type Options struct {
	CatalogDir string
	Manager    *session.Manager
	Engine     *search.Engine
	History    *history.History // optional

	// ListVolumes supplies targets for an index request without targets.
	ListVolumes func() ([]string, error)
}

// Server routes API requests to the session manager and search engine.
type Server struct {
	opts   Options
	router *mux.Router
	logger *logging.Logger
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	s := &Server{opts: opts, logger: logging.Get("api")}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(Metrics(DefaultMetricsConfig()), Logging(s.logger))

	r.HandleFunc("/healthz", s.health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Routes sit on the root router: a subrouter answers a method mismatch
	// with 404 instead of 405.
	r.HandleFunc("/api/search", s.search).Methods("GET")
	r.HandleFunc("/api/catalogs", s.listCatalogs).Methods("GET")
	r.HandleFunc("/api/catalogs/current", s.useCatalog).Methods("PUT")
	r.HandleFunc("/api/index", s.startIndex).Methods("POST")
	r.HandleFunc("/api/index/cancel", s.cancelIndex).Methods("POST")
	r.HandleFunc("/api/status", s.status).Methods("GET")
	r.HandleFunc("/api/history", s.listHistory).Methods("GET")
	r.MethodNotAllowedHandler = http.HandlerFunc(s.methodNotAllowed)
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Follow switches the search engine to every snapshot that appears in the
// catalog directory until ctx is done. Snapshots published by this process
// and by others arrive the same way.
func (s *Server) Follow(ctx context.Context, w *catalog.Watcher) {
	w.Run(ctx, func(c catalog.Change) {
		if c.Kind != catalog.Added {
			return
		}
		if err := s.opts.Engine.Open(ctx, c.Path); err != nil {
			s.logger.Warn("switching to new snapshot failed", "path", c.Path, "error", err)
			return
		}
		s.logger.Info("switched to new snapshot", "path", c.Path)
	})
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
