// Package server provides the HTTP server and routing for wallcheb.
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

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/config"
	"github.com/aristath/wallcheb/internal/database"
	"github.com/aristath/wallcheb/internal/events"
	"github.com/aristath/wallcheb/internal/modules/experiments"
	experimentshandlers "github.com/aristath/wallcheb/internal/modules/experiments/handlers"
	operatorshandlers "github.com/aristath/wallcheb/internal/modules/operators/handlers"
	projectorhandlers "github.com/aristath/wallcheb/internal/modules/projector/handlers"
	"github.com/aristath/wallcheb/internal/projector"
	"github.com/aristath/wallcheb/internal/reliability"
	"github.com/aristath/wallcheb/internal/scheduler"
	"github.com/aristath/wallcheb/internal/work"
)

// Config holds everything the server wires into its routes.
type Config struct {
	Log    zerolog.Logger
	Config *config.Config

	Databases   map[string]*database.DB
	CacheRepo   *cache.Repository
	Experiments *experiments.Repository
	Projector   *projector.Service

	Bus       *events.Bus
	Processor *work.Processor
	Registry  *work.Registry
	Scheduler *scheduler.Scheduler

	Backups       *reliability.BackupService
	RemoteBackups *reliability.RemoteBackupService // nil when no remote target is configured
}

// Server represents the HTTP server.
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	deps           Config
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg.Config,
		deps:   cfg,
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.Databases,
		cfg.Processor,
		cfg.Scheduler,
		cfg.Bus,
		cfg.Backups,
		cfg.RemoteBackups,
	)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	// WriteTimeout is generous: synchronous projection runs on the largest
	// allowed registers take tens of seconds.
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers scheduler job instances for manual triggering via API.
func (s *Server) SetJobs(jobs ...scheduler.Job) {
	s.systemHandlers.SetJobs(jobs...)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/version", s.handleVersion)

		// Unified events stream (SSE).
		eventsStream := NewEventsStreamHandler(s.deps.Bus, s.log)
		r.Get("/events/stream", eventsStream.ServeHTTP)

		// System monitoring, job triggers and backups.
		s.systemHandlers.RegisterRoutes(r)

		// Operator construction and block encoding.
		operatorsHandler := operatorshandlers.NewHandlers(s.deps.CacheRepo, s.log)
		operatorsHandler.RegisterRoutes(r)

		// Projection runs, QSP phases, shift previews.
		projectorHandler := projectorhandlers.NewHandlers(
			s.deps.Projector,
			s.deps.Experiments,
			s.deps.Processor,
			s.cfg.MaxSyncQubits,
			s.cfg.MaxSyncM,
			s.log,
		)
		projectorHandler.RegisterRoutes(r)

		// Stored experiment records and presets.
		experimentsHandler := experimentshandlers.NewHandlers(s.deps.Experiments, s.deps.Processor, s.log)
		experimentsHandler.RegisterRoutes(r)

		// Work processor status and triggers, plus the live job stream.
		workHandlers := work.NewHandlers(s.deps.Processor, s.deps.Registry, s.log)
		workStream := NewWorkStreamHandler(s.deps.Bus, s.log)
		workHandlers.SetStream(workStream.ServeHTTP)
		workHandlers.RegisterRoutes(r)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
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
