package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cassiomorais/summitpay/internal/infrastructure/config"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	poolMaxIdle     = 30 * time.Minute
	poolHealthCheck = time.Minute
	poolPingTimeout = 5 * time.Second
)

// NewPool opens and pings a PostgreSQL pool sized from cfg. Connections
// report applicationName to the server and trace every statement.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig, applicationName string) (*pgxpool.Pool, error) {
	poolConfig, err := buildPoolConfig(cfg, applicationName)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, poolPingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return pool, nil
}

func buildPoolConfig(cfg *config.DatabaseConfig, applicationName string) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.MaxConnections > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConnections)
	}
	if cfg.MinConnections > 0 {
		poolConfig.MinConns = int32(cfg.MinConnections)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	poolConfig.MaxConnIdleTime = poolMaxIdle
	poolConfig.HealthCheckPeriod = poolHealthCheck

	if applicationName != "" {
		poolConfig.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	poolConfig.ConnConfig.Tracer = queryTracer{}

	return poolConfig, nil
}
