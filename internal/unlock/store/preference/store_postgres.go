package preference

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore persists preference sets in the preference_sets table.
// This store is pure I/O; set semantics come from the primary key.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Members(ctx context.Context, owner, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT member
		FROM preference_sets
		WHERE owner = $1 AND pref_key = $2
		ORDER BY member
	`, owner, key)
	if err != nil {
		return nil, fmt.Errorf("query preference members: %w", err)
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan preference member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preference members: %w", err)
	}
	return members, nil
}

func (s *PostgresStore) MembersByKeys(ctx context.Context, owner string, keys []string) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pref_key, member
		FROM preference_sets
		WHERE owner = $1 AND pref_key = ANY($2)
		ORDER BY pref_key, member
	`, owner, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query preference sets: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string, len(keys))
	for _, k := range keys {
		out[k] = []string{}
	}
	for rows.Next() {
		var k, m string
		if err := rows.Scan(&k, &m); err != nil {
			return nil, fmt.Errorf("scan preference set: %w", err)
		}
		out[k] = append(out[k], m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preference sets: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Add(ctx context.Context, owner, key, member string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO preference_sets (owner, pref_key, member)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner, pref_key, member) DO NOTHING
	`, owner, key, member)
	if err != nil {
		return false, fmt.Errorf("insert preference member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert preference rows affected: %w", err)
	}
	return n > 0, nil
}
