package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/garnizeh/leads/internal/config"
	"github.com/garnizeh/leads/internal/db"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	out := flag.String("out", "", "Backup file to write (default <database>.<timestamp>.bak)")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Store.Driver != config.StoreSQLite {
		fmt.Fprintf(os.Stderr, "db_backup only applies to the sqlite driver, got %q\n", cfg.Store.Driver)
		os.Exit(1)
	}

	src := cfg.Store.DatabasePath
	dst := *out
	if dst == "" {
		dst = fmt.Sprintf("%s.%s.bak", src, time.Now().UTC().Format("20060102T150405Z"))
	}

	database, err := db.New(ctx, src, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.Backup(ctx, database, dst); err != nil {
		fmt.Fprintf(os.Stderr, "Backup error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Database backup completed: %s\n", dst)
}
