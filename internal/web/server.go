// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package web serves the garden: HTML pages for planting and reading
// seeds, a JSON API under /api, and the operational endpoints /health and
// /metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zidariuandrei/tane/internal/agent"
	"github.com/zidariuandrei/tane/internal/metrics"
	"github.com/zidariuandrei/tane/internal/store"
	"github.com/zidariuandrei/tane/pkg/types"
)

const (
	defaultAddr       = ":5173"
	defaultGardenSize = 50
	shutdownTimeout   = 10 * time.Second
)

// Store is the part of the seed store the server reads and writes.
type Store interface {
	PlantSeed(ctx context.Context, content, model string) (types.Seed, error)
	Seed(ctx context.Context, id string) (types.Seed, error)
	ListSeeds(ctx context.Context, opts store.ListOptions) ([]types.Seed, error)
	Report(ctx context.Context, seedID string) (types.Report, error)
	DeleteSeed(ctx context.Context, id string) error
	Regenerate(ctx context.Context, id string) error
	Counts(ctx context.Context) (map[types.Status]int, error)
	Ping(ctx context.Context) error
}

// Models lists the models seeds can be planted with.
type Models interface {
	Refresh() error
	Available() []agent.Model
	Providers() []agent.ProviderStatus
}

// Options carries the optional collaborators of a Server.
type Options struct {
	Logger  zerolog.Logger
	Metrics *metrics.Metrics

	// Gatherer backs /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server is the garden's HTTP front end.
type Server struct {
	cfg     types.WebConfig
	store   Store
	models  Models
	log     zerolog.Logger
	metrics *metrics.Metrics
	pages   *pages
	started time.Time
	router  *gin.Engine
}

// New builds a Server and its routes.
func New(cfg types.WebConfig, s Store, m Models, opts Options) *Server {
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.GardenSize <= 0 {
		cfg.GardenSize = defaultGardenSize
	}
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	srv := &Server{
		cfg:     cfg,
		store:   s,
		models:  m,
		log:     opts.Logger,
		metrics: opts.Metrics,
		pages:   loadPages(),
		started: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(srv.log))
	r.Use(requestMetrics(srv.metrics))

	r.GET("/", srv.garden)
	r.POST("/seeds", srv.plant)
	r.GET("/seed/:id", srv.seedPage)
	r.POST("/seed/:id/delete", srv.deleteFromPage)
	r.GET("/report/:id", srv.reportPage)
	r.POST("/report/:id/delete", srv.deleteFromPage)
	r.POST("/report/:id/regenerate", srv.regenerateFromPage)

	api := r.Group("/api")
	api.Use(cors.New(corsConfig(cfg.CORSOrigins)))
	// Preflights only reach group middleware through a matching route.
	api.OPTIONS("/*path", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	api.GET("/seeds", srv.apiListSeeds)
	api.POST("/seeds", srv.apiPlantSeed)
	api.GET("/seeds/:id", srv.apiGetSeed)
	api.DELETE("/seeds/:id", srv.apiDeleteSeed)
	api.POST("/seeds/:id/regenerate", srv.apiRegenerateSeed)
	api.GET("/models", srv.apiModels)
	api.GET("/status", srv.apiStatus)

	r.GET("/health", srv.health)
	metricsHandler := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	r.GET("/metrics", func(c *gin.Context) {
		srv.refreshSeedGauge(c.Request.Context())
		metricsHandler.ServeHTTP(c.Writer, c.Request)
	})

	r.NoRoute(func(c *gin.Context) {
		srv.renderError(c, http.StatusNotFound, "Nothing grows here.")
	})

	srv.router = r
	return srv
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("web server listening")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.log.Info().Msg("web server stopped")
	return nil
}

func (s *Server) health(c *gin.Context) {
	code := http.StatusOK
	body := gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	}
	if err := s.store.Ping(c.Request.Context()); err != nil {
		code = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["error"] = err.Error()
	}
	c.JSON(code, body)
}

func (s *Server) refreshSeedGauge(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	counts, err := s.store.Counts(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("counting seeds for metrics")
		return
	}
	s.metrics.SetSeedCounts(counts)
}
