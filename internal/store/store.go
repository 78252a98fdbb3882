// Package store opens the record store selected by configuration.
package store

import (
	"context"
	"fmt"
	"log/slog"

	dbfs "github.com/garnizeh/leads/db"
	"github.com/garnizeh/leads/internal/config"
	"github.com/garnizeh/leads/internal/db"
	"github.com/garnizeh/leads/internal/repository/mongo"
	"github.com/garnizeh/leads/internal/repository/sqlite"
	"github.com/garnizeh/leads/pkg/repository"
)

// Open connects the configured driver. For sqlite, migrations run first when
// migrate_on_start is set.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMongo:
		connectCtx, cancel := context.WithTimeout(ctx, cfg.APITimeout)
		defer cancel()

		s, err := mongo.Connect(connectCtx, cfg.Store.MongoURI, cfg.Store.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		return s, nil

	case config.StoreSQLite:
		conn, err := db.New(ctx, cfg.Store.DatabasePath, nil)
		if err != nil {
			return nil, err
		}
		if cfg.MigrateOnStart {
			if err := db.Migrate(ctx, conn, dbfs.Migrations); err != nil {
				conn.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return sqlite.New(conn, logger), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
