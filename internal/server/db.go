package server

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// DBConfig holds the PostgreSQL connection settings. Zero pool values
// fall back to defaults sized for a handful of auth queries per
// request.
type DBConfig struct {
	URL             string
	MaxConns        int
	ConnMaxLifetime time.Duration
}

const (
	defaultDBMaxConns        = 10
	defaultDBConnMaxLifetime = 30 * time.Minute
)

// OpenDB opens a PostgreSQL connection pool and verifies connectivity
// before returning it.
func OpenDB(cfg DBConfig) (*sql.DB, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is empty")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, err
	}

	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = defaultDBMaxConns
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = defaultDBConnMaxLifetime
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(lifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
