// Package store persists AnalysisResult summaries to PostgreSQL, grounded
// on internal/database's shape: a pooled *sql.DB wrapper plus a
// repository built on prepared statements.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/ridopark/jonbu-patterns/internal/config"
)

// DB wraps a pooled PostgreSQL connection.
type DB struct {
	conn   *sql.DB
	logger zerolog.Logger
}

// NewConnection opens a pooled connection using the given database config.
func NewConnection(cfg config.DatabaseConfig, logger zerolog.Logger) (*DB, error) {
	connStr := buildConnectionString(cfg)

	conn, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxConnections)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Name).
		Msg("database connection established")

	return &DB{conn: conn, logger: logger}, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Ping checks reachability.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// ExecContext runs a schema statement against the pool, for migration
// commands that need direct access without a prepared-statement repository.
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return db.conn.ExecContext(ctx, query, args...)
}

// QueryRowContext runs a single-row query against the pool, for migration
// status checks that need direct access without a prepared-statement
// repository.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return db.conn.QueryRowContext(ctx, query, args...)
}

func buildConnectionString(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)
}
