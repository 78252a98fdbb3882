package db

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// package-level logger; can be set via SetLogger from caller
var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// SetLogger installs a logger for the db package. Passing nil is a no-op.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Backup writes a consistent copy of the database to dst using VACUUM INTO,
// which is safe while other connections are writing. dst must not exist.
func Backup(ctx context.Context, d *DB, dst string) error {
	if strings.TrimSpace(dst) == "" {
		return fmt.Errorf("backup: empty destination")
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("backup: %s already exists", dst)
	}
	if _, err := d.Exec(ctx, `VACUUM INTO ?`, dst); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	logger.Info("database backup written", "path", dst)
	return nil
}

// Verify opens the database at path and checks that it is intact and holds a
// migrated schema. It is used before restoring a backup over a live file.
func Verify(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	d, err := New(ctx, path, nil)
	if err != nil {
		return err
	}
	defer d.Close()

	var check string
	if err := d.Get(ctx, &check, `PRAGMA integrity_check`); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if check != "ok" {
		return fmt.Errorf("integrity check: %s", check)
	}

	versions, err := Applied(ctx, d)
	if err != nil {
		return err
	}
	if len(versions) == 0 {
		return fmt.Errorf("no migrations recorded in %s", path)
	}
	return nil
}
