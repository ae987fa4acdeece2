// Package testutil provides a real PostgreSQL database for integration tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/iho/cashdesk/internal/domain"
	"github.com/iho/cashdesk/internal/infrastructure/postgres"
)

// DatabaseURLEnv names the variable that enables integration tests.
const DatabaseURLEnv = "TEST_DATABASE_URL"

// TestDB provides isolated test database connections.
type TestDB struct {
	Pool *pgxpool.Pool
	t    *testing.T
}

// NewTestDB migrates and connects to the database named by TEST_DATABASE_URL.
// The test is skipped when the variable is unset or -short is given.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test")
	}
	dbURL := os.Getenv(DatabaseURLEnv)
	if dbURL == "" {
		t.Skipf("%s not set", DatabaseURLEnv)
	}

	if err := postgres.NewMigrator(dbURL, migrationsPath(t), zerolog.Nop()).Up(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{DatabaseURL: dbURL, MaxConns: 20})
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	return &TestDB{Pool: pool, t: t}
}

// migrationsPath walks up from the working directory to the module root.
func migrationsPath(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return filepath.Join(dir, "internal", "infrastructure", "postgres", "migrations")
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("module root not found")
		}
		dir = parent
	}
}

// TruncateAll removes all data from tables.
func (db *TestDB) TruncateAll(ctx context.Context) {
	db.t.Helper()

	_, err := db.Pool.Exec(ctx, `
		TRUNCATE TABLE audit_entries, outbox_events, cash_changes,
			replenishment_requests, ledger_operations, cash_ledgers,
			customers, tellers, branches CASCADE
	`)
	if err != nil {
		db.t.Fatalf("failed to truncate tables: %v", err)
	}
}

// CreateBranch inserts an active branch.
func (db *TestDB) CreateBranch(ctx context.Context, name string) *domain.Branch {
	db.t.Helper()

	b := &domain.Branch{ID: GenerateID(), Code: GenerateID()[20:], Name: name, Active: true}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO branches (id, code, name, active) VALUES ($1, $2, $3, $4)`,
		b.ID, b.Code, b.Name, b.Active)
	if err != nil {
		db.t.Fatalf("failed to create branch: %v", err)
	}
	return b
}

// CreateTeller inserts an active teller. primaryID is required for sub tellers.
func (db *TestDB) CreateTeller(ctx context.Context, branchID string, kind domain.TellerKind, primaryID string) *domain.Teller {
	db.t.Helper()

	teller := &domain.Teller{
		ID:              GenerateID(),
		BranchID:        branchID,
		Name:            string(kind) + " teller",
		Kind:            kind,
		PrimaryTellerID: primaryID,
		Active:          true,
	}
	var primary *string
	if primaryID != "" {
		primary = &primaryID
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO tellers (id, branch_id, name, kind, ceiling, primary_teller_id, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		teller.ID, teller.BranchID, teller.Name, string(teller.Kind), teller.Ceiling, primary, teller.Active)
	if err != nil {
		db.t.Fatalf("failed to create teller: %v", err)
	}
	return teller
}

// GenerateID generates a new ULID.
func GenerateID() string {
	return ulid.Make().String()
}
