package lockout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultline/internal/unlock/models"
)

// PostgresStore persists attempt counters in challenge_lockouts over a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, identifier string) (*models.AttemptLockout, error) {
	record, err := scanLockout(s.pool.QueryRow(ctx, `
		SELECT identifier, failure_count, locked_until, last_failure_at
		FROM challenge_lockouts
		WHERE identifier = $1
	`, identifier))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get lockout: %w", err)
	}
	return record, nil
}

// RecordFailure uses a single upsert so concurrent failures cannot skip the threshold.
func (s *PostgresStore) RecordFailure(ctx context.Context, identifier string, now time.Time) (*models.AttemptLockout, error) {
	record, err := scanLockout(s.pool.QueryRow(ctx, `
		INSERT INTO challenge_lockouts (identifier, failure_count, locked_until, last_failure_at)
		VALUES ($1, 1, NULL, $2)
		ON CONFLICT (identifier) DO UPDATE SET
			failure_count = challenge_lockouts.failure_count + 1,
			last_failure_at = EXCLUDED.last_failure_at
		RETURNING identifier, failure_count, locked_until, last_failure_at
	`, identifier, now))
	if err != nil {
		return nil, fmt.Errorf("record lockout failure: %w", err)
	}
	return record, nil
}

// Lock only touches locked_until so failures recorded concurrently are kept.
func (s *PostgresStore) Lock(ctx context.Context, identifier string, until time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO challenge_lockouts (identifier, failure_count, locked_until, last_failure_at)
		VALUES ($1, 0, $2, $3)
		ON CONFLICT (identifier) DO UPDATE SET
			locked_until = EXCLUDED.locked_until
	`, identifier, until, until)
	if err != nil {
		return fmt.Errorf("lock identifier: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, identifier string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM challenge_lockouts WHERE identifier = $1`, identifier); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResetStale(ctx context.Context, cutoff, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM challenge_lockouts
		WHERE (locked_until IS NULL AND last_failure_at < $1)
		   OR (locked_until IS NOT NULL AND locked_until <= $2)
	`, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("reset stale lockouts: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanLockout(row pgx.Row) (*models.AttemptLockout, error) {
	var record models.AttemptLockout
	if err := row.Scan(&record.Identifier, &record.FailureCount, &record.LockedUntil, &record.LastFailureAt); err != nil {
		return nil, err
	}
	return &record, nil
}
