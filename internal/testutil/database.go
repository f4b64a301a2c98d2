// Package testutil provides shared helpers for database-backed tests.
//
// Tests that need Postgres read TEST_DATABASE_URL and skip when it is unset,
// so the pure unit suite stays runnable without infrastructure. The handle is
// shared process-wide with migrations applied once; tests truncate the tables
// they touch.
package testutil

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/sitedex/sitedex/internal/migrate"
)

var (
	dbOnce   sync.Once
	sharedDB *bun.DB
	setupErr error
)

// DB returns a bun handle on the migration-applied test database, or skips
// the test when TEST_DATABASE_URL is unset.
func DB(t *testing.T) *bun.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	dbOnce.Do(func() {
		sqldb, err := sql.Open("pgx", dsn)
		if err != nil {
			setupErr = err
			return
		}
		sharedDB = bun.NewDB(sqldb, pgdialect.New())
		setupErr = migrate.NewMigrator(sharedDB, Logger()).Up(context.Background())
	})
	if setupErr != nil {
		t.Fatalf("test database setup: %v", setupErr)
	}
	return sharedDB
}

// Truncate empties the given dex tables, cascading to dependents.
func Truncate(t *testing.T, db bun.IDB, tables ...string) {
	t.Helper()
	for _, table := range tables {
		if _, err := db.NewRaw("TRUNCATE ? CASCADE", bun.Ident("dex."+table)).Exec(context.Background()); err != nil {
			t.Fatalf("truncate %s: %v", table, err)
		}
	}
}

// Logger returns a logger that discards all output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
