// Package server implements the Control Surface (C10): synchronous
// HTTP endpoints over the Cycle Orchestrator and Scheduler, per
// spec.md §4.10.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/kis-autotrader/internal/domain"
	"github.com/aristath/kis-autotrader/internal/scheduler"
)

// Trader is the subset of the Cycle Orchestrator the Control Surface
// calls directly. Satisfied by *orchestrator.AutoTrader.
type Trader interface {
	ScanUniverse(universeName string, notionalCap float64) ([]domain.TradeSignal, error)
	RunCycle(cfg domain.AutoTraderConfig) domain.CycleResult
}

// ConfigStore is a copy-on-write holder of the live AutoTraderConfig.
// Replaced atomically; in-flight cycles retain the snapshot they read
// at cycle entry, per spec.md §5.
type ConfigStore struct {
	mu  sync.RWMutex
	cfg domain.AutoTraderConfig
}

// NewConfigStore constructs a ConfigStore seeded with the given config.
func NewConfigStore(initial domain.AutoTraderConfig) *ConfigStore {
	return &ConfigStore{cfg: initial}
}

// Get returns the current config snapshot.
func (c *ConfigStore) Get() domain.AutoTraderConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Set replaces the config wholesale.
func (c *ConfigStore) Set(cfg domain.AutoTraderConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg
}

// Config holds server configuration.
type Config struct {
	Port        int
	Log         zerolog.Logger
	Trader      Trader
	Scheduler   *scheduler.Scheduler
	ConfigStore *ConfigStore
	DevMode     bool
}

// Server is the HTTP Control Surface.
type Server struct {
	router      *chi.Mux
	server      *http.Server
	log         zerolog.Logger
	trader      Trader
	scheduler   *scheduler.Scheduler
	configStore *ConfigStore
}

// New constructs a Server.
func New(cfg Config) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		log:         cfg.Log.With().Str("component", "server").Logger(),
		trader:      cfg.Trader,
		scheduler:   cfg.Scheduler,
		configStore: cfg.ConfigStore,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // a /run call may block for a full cycle
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Post("/scan", s.handleScan)
	s.router.Post("/run", s.handleRun)

	s.router.Route("/config", func(r chi.Router) {
		r.Get("/", s.handleGetConfig)
		r.Put("/", s.handlePutConfig)
	})

	s.router.Route("/scheduler", func(r chi.Router) {
		r.Post("/start", s.handleSchedulerStart)
		r.Post("/stop", s.handleSchedulerStop)
		r.Get("/status", s.handleSchedulerStatus)
		r.Get("/history", s.handleSchedulerHistory)
	})
}

// Start begins serving HTTP requests; blocks until Shutdown or error.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

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
