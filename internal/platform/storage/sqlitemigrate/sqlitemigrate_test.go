package sqlitemigrate

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "migrate.db")
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestApplyMigrationsRunsOnce(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"0001_init.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE things (id TEXT PRIMARY KEY, name TEXT NOT NULL);
-- +migrate Down
DROP TABLE things;
`)},
	}

	if err := ApplyMigrations(sqlDB, migrations, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	// Re-applying must be a no-op.
	if err := ApplyMigrations(sqlDB, migrations, ""); err != nil {
		t.Fatalf("re-apply migrations: %v", err)
	}

	if _, err := sqlDB.Exec("INSERT INTO things (id, name) VALUES ('a', 'b')"); err != nil {
		t.Fatalf("insert into migrated table: %v", err)
	}

	var applied int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&applied); err != nil {
		t.Fatalf("count applied migrations: %v", err)
	}
	if applied != 1 {
		t.Fatalf("applied migrations = %d, want 1", applied)
	}
}

func TestApplyMigrationsOrdersFiles(t *testing.T) {
	sqlDB := openTestDB(t)
	migrations := fstest.MapFS{
		"0002_add_column.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
ALTER TABLE things ADD COLUMN kind TEXT NOT NULL DEFAULT '';
`)},
		"0001_init.sql": &fstest.MapFile{Data: []byte(`
-- +migrate Up
CREATE TABLE things (id TEXT PRIMARY KEY);
`)},
	}

	if err := ApplyMigrations(sqlDB, migrations, ""); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := sqlDB.Exec("INSERT INTO things (id, kind) VALUES ('a', 'x')"); err != nil {
		t.Fatalf("insert using second migration column: %v", err)
	}
}

func TestApplyMigrationsRequiresDB(t *testing.T) {
	if err := ApplyMigrations(nil, fstest.MapFS{}, ""); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id TEXT);\n-- +migrate Down\nDROP TABLE a;\n"
	up := ExtractUpMigration(content)
	if up != "\nCREATE TABLE a (id TEXT);\n" {
		t.Fatalf("up migration = %q", up)
	}
}

func TestExtractUpMigrationWithoutMarkers(t *testing.T) {
	content := "CREATE TABLE a (id TEXT);"
	if got := ExtractUpMigration(content); got != content {
		t.Fatalf("up migration = %q, want full content", got)
	}
}

func TestIsAlreadyExistsError(t *testing.T) {
	if !IsAlreadyExistsError(errors.New("table things already exists")) {
		t.Fatal("expected already-exists detection")
	}
	if !IsAlreadyExistsError(errors.New("duplicate column name: kind")) {
		t.Fatal("expected duplicate-column detection")
	}
	if IsAlreadyExistsError(errors.New("syntax error")) {
		t.Fatal("unexpected match for unrelated error")
	}
}
