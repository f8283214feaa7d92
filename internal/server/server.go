// Package server provides the HTTP server and routing for the valuation service.
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

	"github.com/aristath/vcaudit/internal/config"
	"github.com/aristath/vcaudit/internal/di"
	companyhandlers "github.com/aristath/vcaudit/internal/modules/companies/handlers"
	markethandlers "github.com/aristath/vcaudit/internal/modules/market/handlers"
	valuationhandlers "github.com/aristath/vcaudit/internal/modules/valuation/handlers"
	"github.com/aristath/vcaudit/internal/scheduler"
)

// requestTimeout bounds every request, batch valuations included.
const requestTimeout = 60 * time.Second

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
	Jobs      *di.JobInstances // optional; enables manual job triggers
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
	limiter        *RateLimiter
	done           chan struct{}
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
		done:      make(chan struct{}),
		limiter: NewRateLimiter(
			cfg.Config.RateLimitRequests,
			time.Duration(cfg.Config.RateLimitWindowSecs)*time.Second,
			"/health", "/api/health",
		),
	}

	resultStore := "sqlite"
	if cfg.Container.PostgresPool != nil {
		resultStore = "postgres"
	}
	systemCfg := SystemConfig{
		DataDir:        cfg.Config.DataDir,
		Databases:      cfg.Container.Databases(),
		ResultStore:    resultStore,
		ArchiveEnabled: cfg.Container.ArchiveService != nil,
	}
	if cfg.Jobs != nil {
		systemCfg.Jobs = []scheduler.Job{cfg.Jobs.Archive, cfg.Jobs.Revalue, cfg.Jobs.Maintenance}
	}
	s.systemHandlers = NewSystemHandlers(cfg.Log, systemCfg)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: requestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
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

	// Per-client rate limit, then a global cap on in-flight requests
	s.router.Use(s.limiter.Middleware)
	s.router.Use(middleware.Throttle(s.cfg.MaxConcurrentRequests))

	// Timeout
	s.router.Use(middleware.Timeout(requestTimeout))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
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
		r.Get("/health", s.handleHealth)

		valuationHandler := valuationhandlers.NewHandler(
			s.container.ValuationService,
			s.container.ResultStore,
			s.log,
		)
		valuationHandler.RegisterRoutes(r)

		companyHandler := companyhandlers.NewHandler(s.container.CompanyRepo, s.log)
		companyHandler.RegisterRoutes(r)

		marketHandler := markethandlers.NewHandler(
			s.container.IndexRepo,
			s.container.ComparablesRepo,
			s.container.IndexService,
			s.log,
		)
		marketHandler.RegisterRoutes(r)

		r.Route("/system", func(r chi.Router) {
			r.Get("/status", s.systemHandlers.HandleSystemStatus)
			r.Post("/jobs/{name}", func(w http.ResponseWriter, r *http.Request) {
				s.systemHandlers.HandleTriggerJob(w, r, chi.URLParam(r, "name"))
			})
		})
	})
}

// Router exposes the configured handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and the rate limiter sweeper. It blocks until
// the server stops; http.ErrServerClosed is returned after Shutdown.
func (s *Server) Start() error {
	go s.sweepLimiter()

	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	close(s.done)
	return s.server.Shutdown(ctx)
}

func (s *Server) sweepLimiter() {
	if s.cfg.RateLimitRequests <= 0 {
		return
	}
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.limiter.Sweep()
		case <-s.done:
			return
		}
	}
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		event := s.log.Info()
		if ww.Status() >= http.StatusInternalServerError {
			event = s.log.Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
