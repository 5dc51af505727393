// Package server exposes manifest checking and registry lookups over HTTP.
//
// Routes:
//
//	GET  /healthz
//	POST /v1/check                                          manifest text in the body
//	GET  /v1/authors
//	GET  /v1/authors/{author}/packages
//	GET  /v1/authors/{author}/packages/{name}               ?version=
//	GET  /v1/authors/{author}/packages/{name}/versions
//
// Every registry route accepts ?registry= to query something other than the
// default registry. Each response carries an X-Request-Id header.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/matzehuels/wallyscope/pkg/diagnostics"
	"github.com/matzehuels/wallyscope/pkg/registry"
	"github.com/matzehuels/wallyscope/pkg/wally"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

const (
	maxManifestSize = 1 << 20
	shutdownTimeout = 10 * time.Second
)

// Server serves the HTTP API.
type Server struct {
	store    *registry.Store
	checker  *diagnostics.Checker
	registry string
	logger   *log.Logger
	router   chi.Router
}

// Option configures a [Server].
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithDefaultRegistry sets the registry used when a request names none.
func WithDefaultRegistry(url string) Option {
	return func(s *Server) { s.registry = url }
}

// WithChecker replaces the manifest checker.
func WithChecker(c *diagnostics.Checker) Option {
	return func(s *Server) { s.checker = c }
}

// New builds a server on top of store.
func New(store *registry.Store, opts ...Option) *Server {
	s := &Server{
		store:    store,
		registry: wally.PublicRegistry,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.checker == nil {
		s.checker = diagnostics.NewChecker(store, diagnostics.WithLogger(s.logger))
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/check", s.handleCheck)
		r.Get("/authors", s.handleAuthors)
		r.Get("/authors/{author}/packages", s.handlePackages)
		r.Get("/authors/{author}/packages/{name}", s.handlePackage)
		r.Get("/authors/{author}/packages/{name}/versions", s.handleVersions)
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID reuses a valid incoming X-Request-Id or assigns a new UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request",
			"id", RequestID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond),
		)
	})
}
