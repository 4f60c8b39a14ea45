// Package web serves the hook endpoints for hosts that call over HTTP, plus
// read-only views of the observation log and autolearn status.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/hugo-lorenzo-mato/compound/internal/events"
	"github.com/hugo-lorenzo-mato/compound/internal/hooks"
	"github.com/hugo-lorenzo-mato/compound/internal/logging"
	"github.com/hugo-lorenzo-mato/compound/internal/observe"
)

const (
	maxBodyBytes    = 8 << 20
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Server exposes a hooks.Service over HTTP.
type Server struct {
	router      chi.Router
	hooks       *hooks.Service
	store       *observe.Store
	eventBus    *events.EventBus
	statusPath  string
	corsOrigins []string
	heartbeat   time.Duration
	logger      *logging.Logger
}

// ServerOption configures the server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *logging.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithEventBus enables the SSE stream.
func WithEventBus(bus *events.EventBus) ServerOption {
	return func(s *Server) {
		s.eventBus = bus
	}
}

// WithStatusPath sets the autolearn status document served read-only.
func WithStatusPath(path string) ServerOption {
	return func(s *Server) {
		s.statusPath = path
	}
}

// WithCORSOrigins sets the browser origins allowed on read-only routes.
// An empty list allows any origin.
func WithCORSOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithHeartbeat sets the SSE keep-alive interval.
func WithHeartbeat(d time.Duration) ServerOption {
	return func(s *Server) {
		s.heartbeat = d
	}
}

// NewServer creates a new hook server.
func NewServer(svc *hooks.Service, store *observe.Store, opts ...ServerOption) *Server {
	s := &Server{
		hooks:     svc,
		store:     store,
		heartbeat: 15 * time.Second,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.WithComponent("web")
	s.router = s.setupRouter()
	return s
}

// Handler returns the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.loggingMiddleware)

	r.Get("/health", s.handleHealth)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-None-Match", "X-Requested-With"},
		ExposedHeaders:   []string{"ETag"},
		AllowCredentials: false,
		MaxAge:           300,
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/hooks", func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Post("/event", s.handleEvent)
			r.Post("/tool/before", s.handleToolBefore)
			r.Post("/tool/after", s.handleToolAfter)
			r.Post("/messages/transform", s.handleMessagesTransform)
			r.Get("/compaction", s.handleCompaction)
		})

		r.Group(func(r chi.Router) {
			r.Use(corsHandler.Handler)
			r.With(middleware.Timeout(requestTimeout)).Get("/observations", s.handleObservations)
			r.With(middleware.Timeout(requestTimeout)).Get("/autolearn/status", s.handleAutolearnStatus)
			r.Get("/sse/events", s.handleSSE)
		})
	})

	return r
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"bytes", ww.BytesWritten(),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(data); err != nil {
			s.logger.Error("failed to encode response", "error", err)
		}
	}
}

// handleHealth returns server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"installed": s.hooks.Installed(),
		"time":      time.Now().UTC().Format(time.RFC3339),
	})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting hook server", "addr", addr)
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
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
