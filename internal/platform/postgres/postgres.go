// Package postgres opens the database/sql and pgx pools used by the SQL stores.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS preference_sets (
	owner     VARCHAR(128) NOT NULL,
	pref_key  VARCHAR(64)  NOT NULL,
	member    VARCHAR(128) NOT NULL,
	added_at  TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
	PRIMARY KEY (owner, pref_key, member)
);

CREATE TABLE IF NOT EXISTS challenge_lockouts (
	identifier      VARCHAR(256) PRIMARY KEY,
	failure_count   INTEGER      NOT NULL DEFAULT 0,
	locked_until    TIMESTAMPTZ,
	last_failure_at TIMESTAMPTZ  NOT NULL
);
`

// Open returns a database/sql pool on the lib/pq driver.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// OpenPool returns a pgx native pool.
func OpenPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping pgx pool: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the preference and lockout tables if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure postgres schema: %w", err)
	}
	return nil
}
