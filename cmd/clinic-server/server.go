package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/domain/appointment"
	"github.com/clinic/clinic/internal/domain/clinic"
	"github.com/clinic/clinic/internal/domain/dashboard"
	"github.com/clinic/clinic/internal/domain/examination"
	"github.com/clinic/clinic/internal/domain/identity"
	"github.com/clinic/clinic/internal/domain/session"
	"github.com/clinic/clinic/internal/platform/auth"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/events"
	"github.com/clinic/clinic/internal/platform/middleware"
	"github.com/clinic/clinic/internal/platform/telemetry"
	"github.com/clinic/clinic/internal/platform/validation"
)

const version = "0.1.0"

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// deps are the process-wide resources the router is built from.
type deps struct {
	cfg     *config.Config
	logger  zerolog.Logger
	pool    *pgxpool.Pool
	redis   *redis.Client
	tokens  *auth.TokenIssuer
	revoked auth.RevocationStore
	events  events.Publisher
}

func newTokenIssuer(cfg *config.Config) *auth.TokenIssuer {
	return auth.NewTokenIssuer(auth.TokenConfig{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	})
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	if cfg.UsesDevSecret() {
		logger.Warn().Msg("using the built-in development JWT secret")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	d := &deps{cfg: cfg, logger: logger, pool: pool, tokens: newTokenIssuer(cfg)}

	if cfg.RedisURL != "" {
		client, err := auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer client.Close()
		d.redis = client
		d.revoked = auth.NewRedisRevocationStore(client)
		logger.Info().Msg("token revocation backed by redis")
	} else {
		d.revoked = auth.NewMemoryRevocationStore(0)
		logger.Warn().Msg("REDIS_URL not set, token revocation is in-memory and per-process")
	}
	defer d.revoked.Close()

	if cfg.AMQPURL != "" {
		pub, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to message broker")
		}
		defer pub.Close()
		d.events = pub
		logger.Info().Str("exchange", cfg.AMQPExchange).Msg("publishing domain events")
	}

	e := newRouter(d)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newMetrics builds the metrics registry. Pool gauges are only registered
// when a pool is available.
func newMetrics(pool *pgxpool.Pool) *telemetry.Registry {
	r := telemetry.NewRegistry()
	if pool == nil {
		return r
	}
	r.RegisterGauge("db_pool_total_connections", "Open database pool connections.", func() int64 {
		return int64(pool.Stat().TotalConns())
	})
	r.RegisterGauge("db_pool_acquired_connections", "Database pool connections in use.", func() int64 {
		return int64(pool.Stat().AcquiredConns())
	})
	r.RegisterGauge("db_pool_idle_connections", "Idle database pool connections.", func() int64 {
		return int64(pool.Stat().IdleConns())
	})
	return r
}

// newRouter wires middleware, services and routes. It does not touch the
// database.
func newRouter(d *deps) *echo.Echo {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)
	e.Validator = validation.New()

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}

	e.Use(middleware.RequestID(logger))
	e.Use(middleware.Logger(logger))
	if cfg.MetricsEnabled {
		metrics := newMetrics(d.pool)
		e.Use(metrics.Middleware())
		e.GET("/metrics", metrics.Handler())
	}
	e.Use(middleware.Recovery(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	e.Use(auth.Middleware(d.tokens, d.revoked))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(d.pool))

	api := e.Group("/api/v1", middleware.RateLimit(rateLimitCfg))

	tx := db.NewTxManager(d.pool)

	identitySvc := identity.NewService(identity.NewRepositoriesPG(d.pool), tx, cfg.BcryptCost)
	identity.NewHandler(identitySvc).RegisterRoutes(api)

	sessionSvc := session.NewService(identitySvc, d.tokens, d.revoked)
	session.NewHandler(sessionSvc).RegisterRoutes(api)

	clinicSvc := clinic.NewService(clinic.NewRepoPG(d.pool), tx)
	clinic.NewHandler(clinicSvc).RegisterRoutes(api)

	appointmentRepo := appointment.NewRepoPG(d.pool)
	publisher := d.events
	if publisher == nil {
		publisher = events.Nop{}
	}

	appointmentSvc := appointment.NewService(appointmentRepo, tx).WithPublisher(publisher)
	appointment.NewHandler(appointmentSvc).RegisterRoutes(api)

	examSvc := examination.NewService(examination.NewRepoPG(d.pool), appointmentRepo, identitySvc, tx).WithPublisher(publisher)
	examination.NewHandler(examSvc).RegisterRoutes(api)

	var statsCache dashboard.Cache
	if d.redis != nil && cfg.StatsCacheTTL > 0 {
		statsCache = dashboard.NewRedisCache(d.redis, cfg.StatsCacheTTL)
	}
	dashboard.NewHandler(dashboard.NewService(dashboard.NewRepoPG(d.pool), statsCache)).RegisterRoutes(api)

	return e
}
