package testdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/taskhub-api/internal/platform/postgres/migrations"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

// TestTimeout defines a default timeout for test database operations.
const TestTimeout = 5 * time.Second

var migrateOnce sync.Once

// GetTestDatabaseURL returns the database URL for tests, checking
// DATABASE_URL then TASKHUB_TEST_DB_URL.
func GetTestDatabaseURL() string {
	if u := os.Getenv("DATABASE_URL"); u != "" {
		return u
	}
	return os.Getenv("TASKHUB_TEST_DB_URL")
}

// GetTestDBWithT opens a migrated database connection or skips the test
// when no database URL is set.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL or TASKHUB_TEST_DB_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "Failed to open database connection")
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "Database ping failed (%s)", MaskDatabaseURL(dbURL))

	var migrateErr error
	migrateOnce.Do(func() { migrateErr = ApplyMigrations(db) })
	require.NoError(t, migrateErr, "Failed to run migrations")

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ApplyMigrations runs every embedded migration.
func ApplyMigrations(db *sql.DB) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetTableName(migrations.TableName)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// WithTx runs fn in a transaction that is always rolled back, isolating
// each test's writes.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.Begin()
	require.NoError(t, err, "Failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("Warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// MaskDatabaseURL hides the password of a database URL for logging.
func MaskDatabaseURL(dbURL string) string {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return dbURL
	}
	if _, ok := u.User.Password(); !ok {
		return dbURL
	}
	return strings.Replace(u.String(), u.User.String()+"@", u.User.Username()+":****@", 1)
}
