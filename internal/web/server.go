// Package web exposes the chat service over HTTP and a websocket.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stupiduntilnot/reportchat/internal/chat"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// maxBodyBytes bounds request bodies; snapshots carry at most a page of rows
// but the host may send more.
const maxBodyBytes = 8 << 20

// Options configures a Server.
type Options struct {
	// AllowedOrigins lists the browser origins allowed for CORS and the
	// websocket. "*" allows any origin.
	AllowedOrigins []string
	Log            logrus.FieldLogger
}

// Server routes HTTP requests to a chat.Service.
type Server struct {
	chat     *chat.Service
	log      logrus.FieldLogger
	origins  map[string]bool
	anyOrig  bool
	upgrader websocket.Upgrader
	router   chi.Router
}

// NewServer builds the router.
func NewServer(svc *chat.Service, opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		chat:    svc,
		log:     log,
		origins: map[string]bool{},
	}
	for _, o := range opts.AllowedOrigins {
		if o == "*" {
			s.anyOrig = true
		}
		s.origins[o] = true
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	s.registerRoutes(r)
	s.router = r
	return s
}

func (s *Server) registerRoutes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/ws", s.handleWebsocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/providers", s.handleProviders)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
		r.Put("/snapshot", s.handlePutSnapshot)
		r.Get("/context", s.handleGetContext)
		r.Get("/messages", s.handleGetMessages)
		r.Post("/messages", s.handlePostMessage)
		r.Delete("/messages", s.handleDeleteMessages)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
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
		s.log.WithField("addr", addr).Info("starting web server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.log.Info("shutting down web server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if s.anyOrig || len(s.origins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.origins[origin]
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.WithFields(logrus.Fields{
					"method":     r.Method,
					"path":       r.URL.Path,
					"status":     ww.Status(),
					"bytes":      ww.BytesWritten(),
					"duration":   time.Since(start).String(),
					"request_id": middleware.GetReqID(r.Context()),
					"remote":     r.RemoteAddr,
				}).Debug("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
