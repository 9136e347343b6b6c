// Package web exposes a gateway.Gateway over HTTP/JSON with a chi router, plus a
// datastar SSE stream that pushes structure changes to browsers.
package web

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"courseforge/internal/gateway"
	"courseforge/internal/logger"
)

type ServerConfig struct {
	Addr        string
	CORSOrigins []string
	Logger      *logger.Logger

	// KeepAlive is the SSE keep-alive interval (default 25s).
	KeepAlive time.Duration
}

type Server struct {
	gw  gateway.Gateway
	cfg ServerConfig
	log *logger.Logger
	hub *changeHub
}

func NewServer(gw gateway.Gateway, cfg ServerConfig) *Server {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:8420"
	}
	if cfg.KeepAlive <= 0 {
		cfg.KeepAlive = 25 * time.Second
	}
	return &Server{gw: gw, cfg: cfg, log: cfg.Logger, hub: newChangeHub()}
}

func (s *Server) Addr() string { return s.cfg.Addr }

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(s.requestLogger)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	r.Get("/healthz", handleHealth)
	r.Get("/courses/{courseID}", s.handlePreview)

	r.Route("/api", func(api chi.Router) {
		api.Get("/courses/{courseID}/structure", s.handleFetchStructure)
		api.Get("/courses/{courseID}/events", s.handleEvents)
		api.Put("/courses/{courseID}/module-order", s.handleReorderModules)
		api.Post("/courses/{courseID}/structure-templates", s.handleSaveStructureTemplate)

		api.Put("/modules/{moduleID}/lesson-order", s.handleReorderLessons)
		api.Post("/modules/{moduleID}/lessons/from-template", s.handleCreateFromTemplate)
		api.Post("/modules/{moduleID}/lessons/copy", s.handleCopyLesson)

		api.Put("/lessons/{lessonID}", s.handleSaveLesson)
		api.Delete("/lessons/{lessonID}", s.handleDeleteLesson)
		api.Post("/lessons/{lessonID}/move", s.handleMoveLesson)
	})
	return r
}

// ListenAndServe runs until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	s.hub.close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"dur", time.Since(start).String(),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
