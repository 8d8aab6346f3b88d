//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"

	"vaultline/internal/platform/mysql"
)

// MySQLContainer wraps a testcontainers MySQL instance holding the
// preference_sets schema.
type MySQLContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewMySQLContainer starts MySQL and applies the preference schema.
func NewMySQLContainer(t *testing.T) *MySQLContainer {
	t.Helper()
	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("vaultline"),
		tcmysql.WithUsername("vaultline"),
		tcmysql.WithPassword("vaultline"),
	)
	if err != nil {
		t.Fatalf("failed to start mysql container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "parseTime=true")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get mysql connection string: %v", err)
	}

	db, err := mysql.Open(ctx, dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to open mysql: %v", err)
	}
	if err := mysql.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to apply mysql schema: %v", err)
	}

	return &MySQLContainer{Container: container, DSN: dsn, DB: db}
}

// TruncateTables empties the named tables one at a time; MySQL has no
// multi-table TRUNCATE.
func (m *MySQLContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := m.DB.ExecContext(ctx, fmt.Sprintf("TRUNCATE TABLE %s", table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
