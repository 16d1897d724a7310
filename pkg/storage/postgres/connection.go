// Package postgres manages the PostgreSQL connection pool and schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/relatoapp/relato/pkg/config"
	"github.com/relatoapp/relato/pkg/observability"
)

// ConnectionManager owns the database pool for the process. Every store
// shares the one *sql.DB it returns from Primary.
type ConnectionManager struct {
	primary *sql.DB
	cfg     config.DatabaseConfig
	logger  *observability.Logger
}

// NewConnectionManager opens the pool, applies the configured limits and
// verifies the database answers before returning.
func NewConnectionManager(cfg config.DatabaseConfig, logger *observability.Logger) (*ConnectionManager, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetMaxIdleConns(cfg.MinConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.QueryTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.WithField("max_conns", cfg.MaxConns).Info("database pool initialized")

	return &ConnectionManager{primary: db, cfg: cfg, logger: logger}, nil
}

// Primary returns the shared pool.
func (cm *ConnectionManager) Primary() *sql.DB {
	return cm.primary
}

// HealthCheck pings the database.
func (cm *ConnectionManager) HealthCheck(ctx context.Context) error {
	if err := cm.primary.PingContext(ctx); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	return nil
}

// Close shuts the pool down.
func (cm *ConnectionManager) Close() error {
	return cm.primary.Close()
}
