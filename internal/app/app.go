// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/garyellow/chatai/internal/buildinfo"
	"github.com/garyellow/chatai/internal/chat"
	"github.com/garyellow/chatai/internal/config"
	"github.com/garyellow/chatai/internal/logger"
	"github.com/garyellow/chatai/internal/matcher"
	"github.com/garyellow/chatai/internal/metrics"
	"github.com/garyellow/chatai/internal/r2client"
	"github.com/garyellow/chatai/internal/ratelimit"
	"github.com/garyellow/chatai/internal/responses"
	"github.com/garyellow/chatai/internal/sentry"
	"github.com/garyellow/chatai/internal/source"
	"github.com/garyellow/chatai/internal/stringutil"
)

const serviceName = "chatai"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg      *config.Config
	logger   *logger.Logger
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	table    *responses.Table
	matcher  *matcher.Matcher
	limiter  *ratelimit.KeyedLimiter // nil when rate limiting is disabled
	handler  http.Handler
	server   *http.Server
	draining atomic.Bool
}

// Initialize creates the application and loads the response table.
// The table is loaded before the server exists, so a source that cannot be
// read fails startup instead of serving empty answers.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Set as default logger so package-level slog.*Context() calls pick up
	// request IDs through ContextHandler.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.Release()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.Info("Better Stack logging enabled")
	}

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error reporting disabled")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	table, err := LoadTable(ctx, cfg, log, m)
	if err != nil {
		_ = log.Shutdown(ctx)
		return nil, err
	}

	app := New(cfg, log, m, registry, table)
	log.WithField("addr", cfg.Addr()).Info("Initialization complete")
	return app, nil
}

// LoadTable opens the configured data source and builds the response table.
// rec may be nil.
func LoadTable(ctx context.Context, cfg *config.Config, log *logger.Logger, rec responses.Recorder) (*responses.Table, error) {
	loadCtx, cancel := context.WithTimeout(ctx, cfg.DataLoadTimeout)
	defer cancel()

	src, err := source.Open(loadCtx, cfg.DataSource, source.Options{
		Encoding: cfg.DataEncoding,
		S3: r2client.Config{
			Endpoint:    cfg.S3Endpoint,
			Region:      cfg.S3Region,
			AccessKeyID: cfg.S3AccessKeyID,
			SecretKey:   cfg.S3SecretAccessKey,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("data source: %w", err)
	}

	var opts []responses.LoadOption
	if rec != nil {
		opts = append(opts, responses.WithRecorder(rec))
	}
	table, _, err := responses.Load(loadCtx, src, log.WithModule("responses"), opts...)
	if err != nil {
		return nil, fmt.Errorf("data source: %w", err)
	}
	return table, nil
}

// NewMatcher builds the matcher for a table according to cfg.
func NewMatcher(cfg *config.Config, table *responses.Table) *matcher.Matcher {
	var opts []matcher.Option
	if cfg.MatchStripPunctuation {
		opts = append(opts, matcher.WithProcessor(stringutil.FullProcess))
	}
	return matcher.New(table, opts...)
}

// New wires an Application around an already loaded table.
func New(cfg *config.Config, log *logger.Logger, m *metrics.Metrics, registry *prometheus.Registry, table *responses.Table) *Application {
	app := &Application{
		cfg:      cfg,
		logger:   log,
		metrics:  m,
		registry: registry,
		table:    table,
		matcher:  NewMatcher(cfg, table),
	}

	if cfg.RateLimitEnabled() {
		app.limiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:          "client",
			Burst:         cfg.RateBurst,
			RefillRate:    cfg.RateRefill,
			CleanupPeriod: config.RateLimiterCleanupInterval,
			Metrics:       m,
		})
	}

	app.handler = app.newHandler()
	app.server = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.handler,
		ReadHeaderTimeout: config.HTTPReadHeader,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}
	return app
}

// newHandler builds the gin router wrapped in CORS handling.
func (a *Application) newHandler() http.Handler {
	router := gin.New()
	router.Use(recoveryMiddleware(a.logger, a.metrics))
	if sentry.IsEnabled() {
		// Repanic hands the panic back to recoveryMiddleware for the JSON 500.
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(requestIDMiddleware())
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	chatHandler := chat.NewHandler(chat.Config{
		APIKey:          a.cfg.APIKey,
		Matcher:         a.matcher,
		MaxBodyBytes:    a.cfg.MaxBodyBytes,
		MaxMessageRunes: a.cfg.MaxMessageRunes,
		Logger:          a.logger,
		Metrics:         a.metrics,
	})

	router.GET("/", a.serviceInfo)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.POST("/chatai", rateLimitMiddleware(a.limiter), chatHandler.Handle)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsAuthEnabled, a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	return cors.New(cors.Options{
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id", "Retry-After"},
		MaxAge:         600,
	}).Handler(router)
}

// Handler returns the HTTP handler serving all routes.
func (a *Application) Handler() http.Handler {
	return a.handler
}

// Table returns the loaded response table.
func (a *Application) Table() *responses.Table {
	return a.table
}

func (a *Application) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": buildinfo.Release(),
		"entries": a.table.Len(),
		"endpoints": gin.H{
			"chat":      "POST /chatai",
			"liveness":  "GET /livez",
			"readiness": "GET /readyz",
			"metrics":   "GET /metrics",
		},
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	if a.draining.Load() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "shutting down",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"entries": a.table.Len(),
	})
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext serves until ctx is canceled or the listener fails.
//
// Shutdown order:
//  1. Mark not ready so load balancers stop routing new traffic
//  2. Stop accepting connections and wait for in-flight requests
//  3. Stop the rate limiter cleanup goroutine
//  4. Flush error reports and remote logs
func (a *Application) RunContext(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.WithField("addr", a.server.Addr).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			a.logger.Info("Received shutdown signal")
		}
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown performs graceful shutdown of the HTTP server and resources.
func (a *Application) shutdown() error {
	a.draining.Store(true)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	start := time.Now()
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}

	if sentry.IsEnabled() && !sentry.Flush(config.ErrorReportFlush) {
		a.logger.Warn("Timed out flushing error reports")
	}

	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("Shutdown complete")

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("logger shutdown: %w", err))
	}
	return errors.Join(errs...)
}
