package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/cassiomorais/summitpay/internal/infrastructure/config"
	"github.com/cassiomorais/summitpay/internal/infrastructure/observability"
	infraRedis "github.com/cassiomorais/summitpay/internal/infrastructure/redis"
	"github.com/cassiomorais/summitpay/internal/repository/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// App holds the process-wide dependencies of a summitpay binary.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Metrics *observability.Metrics

	tracer *sdktrace.TracerProvider
}

// New loads configuration and connects to PostgreSQL and Redis. serviceName
// labels logs, traces and database sessions.
func New(ctx context.Context, serviceName string, metricsNamespace string) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	obs := cfg.Observability
	logger := observability.InitLogger(serviceName, obs.LogLevel, observability.LogOutput(obs.LogFormat, os.Stdout))
	logger.Info().
		Bool("summit_testing", cfg.Summit.Testing).
		Str("summit_host", cfg.Summit.Host()).
		Str("instance", cfg.InstanceID).
		Msg("Starting")

	app := &App{Config: cfg, Logger: logger}

	if obs.EnableTracing {
		tp, err := observability.InitTracer(serviceName, obs.JaegerEndpoint)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to initialize tracer, continuing without tracing")
		} else {
			app.tracer = tp
			logger.Info().Str("endpoint", obs.JaegerEndpoint).Msg("Tracing enabled")
		}
	}

	if obs.EnableMetrics {
		app.Metrics = observability.NewMetrics(metricsNamespace, nil)
	}

	app.Pool, err = postgres.NewPool(ctx, &cfg.Database, serviceName)
	if err != nil {
		app.shutdownTracer()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Str("database", cfg.Database.Database).Msg("Connected to PostgreSQL")

	app.Redis, err = infraRedis.NewClient(ctx, &cfg.Redis, serviceName)
	if err != nil {
		app.Pool.Close()
		app.shutdownTracer()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Connected to Redis")

	return app, nil
}

// Close releases connections and flushes pending spans.
func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to close Redis client")
	}
	a.Pool.Close()
	a.shutdownTracer()
}

func (a *App) shutdownTracer() {
	if a.tracer == nil {
		return
	}
	if err := observability.Shutdown(context.Background(), a.tracer); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to flush traces")
	}
	a.tracer = nil
}
