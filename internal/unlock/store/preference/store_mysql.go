package preference

import (
	"context"
	"database/sql"
	"fmt"
)

// MySQLStore persists preference sets in MySQL/MariaDB.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQL(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Members(ctx context.Context, owner, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT member FROM preference_sets WHERE owner = ? AND pref_key = ? ORDER BY member`,
		owner, key,
	)
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

// Add relies on INSERT IGNORE against the primary key; zero affected rows
// means the member was already present.
func (s *MySQLStore) Add(ctx context.Context, owner, key, member string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT IGNORE INTO preference_sets (owner, pref_key, member) VALUES (?, ?, ?)`,
		owner, key, member,
	)
	if err != nil {
		return false, fmt.Errorf("insert preference member: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert preference rows affected: %w", err)
	}
	return n > 0, nil
}
