// Package postgres stores jobs and drivers as JSONB documents, with the
// columns the services filter on (status, driver, vendor) kept alongside.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"

	"uturn/internal/config"
	"uturn/internal/logger"
)

// New connects to Postgres, verifies connectivity, and applies pending
// migrations from cfg.MigrationsPath.
func New(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*pgxpool.Pool, error) {
	url := cfg.Postgres.URL()

	pcfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("postgres parse dsn: %w", err)
	}
	pcfg.ConnConfig.ConnectTimeout = 5 * time.Second
	if pcfg.ConnConfig.RuntimeParams == nil {
		pcfg.ConnConfig.RuntimeParams = make(map[string]string, 1)
	}
	pcfg.ConnConfig.RuntimeParams["timezone"] = "UTC"
	if cfg.Postgres.MaxConns > 0 {
		pcfg.MaxConns = cfg.Postgres.MaxConns
	}
	pcfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	if err := migrateUp(cfg.MigrationsPath, url, log); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info("postgres connected",
		logger.String("host", cfg.Postgres.Host),
		logger.String("database", cfg.Postgres.Database),
	)
	return pool, nil
}

func migrateUp(path, url string, log logger.Logger) error {
	m, err := migrate.New("file://"+path, url)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}
	log.Info("migrations applied", logger.String("path", path))
	return nil
}
