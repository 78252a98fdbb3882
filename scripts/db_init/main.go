package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	dbfs "github.com/garnizeh/leads/db"
	"github.com/garnizeh/leads/internal/config"
	"github.com/garnizeh/leads/internal/db"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Store.Driver != config.StoreSQLite {
		fmt.Fprintf(os.Stderr, "db_init only applies to the sqlite driver, got %q\n", cfg.Store.Driver)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.Store.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database, dbfs.Migrations); err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}

	versions, err := db.Applied(ctx, database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration runner error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Database initialized successfully (%d migrations applied).\n", len(versions))
}
