package db_test

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	dbfs "github.com/garnizeh/leads/db"
	"github.com/garnizeh/leads/internal/db"
)

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	versions, err := db.Applied(ctx, d)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(versions) < 1 || versions[0] != "0001_init" {
		t.Fatalf("unexpected applied versions: %v", versions)
	}

	for _, table := range []string{"users", "leads"} {
		var name string
		if err := d.Get(ctx, &name, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table); err != nil {
			t.Fatalf("expected %s table exists: %v", table, err)
		}
	}
}

func TestMigrate_FailedMigrationNotRecorded(t *testing.T) {
	ctx := context.Background()

	d, err := db.New(ctx, ":memory:", nil)
	if err != nil {
		t.Fatalf("failed to open in-memory db: %v", err)
	}
	defer d.Close()

	fsys := fstest.MapFS{
		"migrations/0001_ok.sql":     {Data: []byte(`CREATE TABLE a (id INTEGER);`)},
		"migrations/0002_broken.sql": {Data: []byte(`CREATE TABLE b (id INTEGER); THIS IS NOT SQL;`)},
		"migrations/README.md":       {Data: []byte(`ignored`)},
	}

	if err := db.Migrate(ctx, d, fsys); err == nil {
		t.Fatalf("expected error from broken migration")
	}

	versions, err := db.Applied(ctx, d)
	if err != nil {
		t.Fatalf("applied: %v", err)
	}
	if len(versions) != 1 || versions[0] != "0001_ok" {
		t.Fatalf("expected only 0001_ok recorded, got %v", versions)
	}

	var n int
	if err := d.Get(ctx, &n, `SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='b'`); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("table from failed migration should have been rolled back")
	}
}

func TestMigrate_FileDatabase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "leads.db")

	d, err := db.New(ctx, path, nil)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer d.Close()

	if err := db.Migrate(ctx, d, dbfs.Migrations); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	var count int
	if err := d.Get(ctx, &count, `SELECT COUNT(1) FROM schema_migrations`); err != nil {
		t.Fatalf("scan schema_migrations count: %v", err)
	}
	if count == 0 {
		t.Fatalf("expected migrations recorded, got 0")
	}
}
