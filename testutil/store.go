package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/haxgun/Arcane/store"
)

// SetupTestDB opens a private in-memory SQLite store with migrations applied.
func SetupTestDB(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), store.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// SetupTestPostgres connects to TEST_PG_DSN and migrates it. The test is
// skipped when the variable is not set.
func SetupTestPostgres(t *testing.T) *store.Store {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	s, err := store.Open(context.Background(), store.DriverPostgres, dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}
	ctx := context.Background()
	for _, table := range []string{"aliases", "commands", "channel_settings", "channels", "oauth_tokens"} {
		if _, err := s.DB().ExecContext(ctx, "DELETE FROM "+table); err != nil {
			t.Fatalf("failed to clean %s: %v", table, err)
		}
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}
