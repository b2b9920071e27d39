package migrations_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/traveltrackie/superteam-ireland/internal/database"
	"github.com/traveltrackie/superteam-ireland/internal/migrations"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), filepath.Join(t.TempDir(), "hunt.db"))
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	db := openDB(t)

	if err := migrations.Run(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	for _, name := range []string{"sessions", "sessions_updated_at"} {
		var got string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE name = ?", name,
		).Scan(&got)
		if err != nil {
			t.Errorf("%q not found: %v", name, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	db := openDB(t)

	if err := migrations.Run(db); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := migrations.Run(db); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
}
