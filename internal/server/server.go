// Package server provides the HTTP server and routing for the analytics engine.
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

	"github.com/aristath/networth/internal/config"
	"github.com/aristath/networth/internal/di"
	accountshandlers "github.com/aristath/networth/internal/modules/accounts/handlers"
	analyticshandlers "github.com/aristath/networth/internal/modules/analytics/handlers"
	benchmarkshandlers "github.com/aristath/networth/internal/modules/benchmarks/handlers"
	cashflowshandlers "github.com/aristath/networth/internal/modules/cash_flows/handlers"
	currencyhandlers "github.com/aristath/networth/internal/modules/currency/handlers"
	snapshotshandlers "github.com/aristath/networth/internal/modules/snapshots/handlers"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Port      int
	DevMode   bool
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	eventsHandler  *EventsStreamHandler
	statusMonitor  *StatusMonitor
	stopMonitor    context.CancelFunc
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	c := cfg.Container

	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: c,
		systemHandlers: NewSystemHandlers(
			cfg.Log,
			cfg.Config.DataDir,
			c.Databases(),
			c.AnalyticsService,
			c.ClientDataRepo,
			c.Scheduler,
			c.Normalizer.Base(),
		),
		eventsHandler: NewEventsStreamHandler(c.EventBus, cfg.Log),
		statusMonitor: NewStatusMonitor(c.EventManager, c.Databases(), cfg.Log),
	}

	s.setupMiddleware()
	s.setupRoutes(cfg.DevMode)

	s.server = &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the event streams hold their connection open.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Link"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(devMode bool) {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Streams stay outside the timeout and compression middleware
		r.Get("/events/stream", s.eventsHandler.ServeHTTP)
		r.Get("/events/ws", s.eventsHandler.ServeWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			if !devMode {
				r.Use(middleware.Compress(5))
			}

			s.setupSystemRoutes(r)

			c := s.container
			accountshandlers.NewHandler(c.AccountRepo, s.log).RegisterRoutes(r)
			snapshotshandlers.NewHandler(c.SnapshotRepo, s.log).RegisterRoutes(r)
			cashflowshandlers.NewHandler(c.FlowRepo, s.log).RegisterRoutes(r)
			benchmarkshandlers.NewHandler(c.BenchmarkRepo, s.log).RegisterRoutes(r)
			currencyhandlers.NewHandler(c.Normalizer, s.log).RegisterRoutes(r)
			analyticshandlers.NewHandler(c.AnalyticsService, s.log).RegisterRoutes(r)
		})
	})
}

func (s *Server) setupSystemRoutes(r chi.Router) {
	h := s.systemHandlers
	r.Route("/system", func(r chi.Router) {
		r.Get("/status", h.HandleSystemStatus)
		r.Get("/database/stats", h.HandleDatabaseStats)
		r.Get("/disk", h.HandleDiskUsage)
		r.Get("/jobs", h.HandleJobsStatus)
		r.Post("/jobs/{name}", h.HandleTriggerJob)
	})
}

// Start starts the status monitor and the HTTP server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.stopMonitor = cancel
	s.statusMonitor.Start(ctx, time.Minute)

	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	if s.stopMonitor != nil {
		s.stopMonitor()
	}
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
