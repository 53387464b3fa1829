package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"livefolio/internal/config"
	"livefolio/internal/modules/marketdata"
	"livefolio/internal/modules/schema"
	"livefolio/internal/modules/snapshot"
	"livefolio/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Port    int
	Log     zerolog.Logger
	State   *snapshot.StateManager
	Runner  *scheduler.Runner
	Sources *schema.Sources
	Clock   *marketdata.SessionClock
	App     *config.Config
	DevMode bool
}

// Server represents the HTTP server
type Server struct {
	router  *chi.Mux
	server  *http.Server
	log     zerolog.Logger
	state   *snapshot.StateManager
	runner  *scheduler.Runner
	sources *schema.Sources
	clock   *marketdata.SessionClock
	app     *config.Config
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		log:     cfg.Log.With().Str("component", "server").Logger(),
		state:   cfg.State,
		runner:  cfg.Runner,
		sources: cfg.Sources,
		clock:   cfg.Clock,
		app:     cfg.App,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/session", s.handleSession)

		r.Route("/scheduler", func(r chi.Router) {
			r.Get("/", s.handleSchedulerStatus)
			r.Put("/interval", s.handleSetInterval)
		})

		r.Post("/sources/{kind}", s.handleUploadSource)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
