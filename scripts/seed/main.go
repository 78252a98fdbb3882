package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garnizeh/leads/internal/auth"
	"github.com/garnizeh/leads/internal/config"
	"github.com/garnizeh/leads/internal/leads"
	"github.com/garnizeh/leads/internal/store"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository"
)

const (
	demoEmail    = "demo@leadmanagement.com"
	demoPassword = "demo123"
)

var (
	firstNames = []string{"John", "Jane", "Mike", "Sarah", "David", "Emma", "Chris", "Lisa", "Ryan", "Anna"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
	companies  = []string{"TechCorp", "InnovateLab", "DataSystems", "CloudSoft", "NextGen Tech", "AI Solutions", "WebDev Co", "Mobile First", "Digital Hub", "StartupXYZ"}
	cities     = []string{"New York", "San Francisco", "Los Angeles", "Chicago", "Austin", "Seattle", "Boston", "Denver", "Miami", "Atlanta"}
	states     = []string{"NY", "CA", "IL", "TX", "WA", "MA", "CO", "FL", "GA"}
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	count := flag.Int("leads", 150, "Number of leads to create for the demo user")
	flag.Parse()

	if err := run(*configPath, *count); err != nil {
		fmt.Fprintf(os.Stderr, "Seed error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, count int) error {
	ctx := context.Background()
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	cfg.MigrateOnStart = true

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	repo, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	user, err := demoUser(ctx, repo)
	if err != nil {
		return err
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	svc, err := leads.NewService(repo, loc, logger)
	if err != nil {
		return err
	}

	created := 0
	for attempts := 0; created < count && attempts < count*3; attempts++ {
		_, err := svc.Create(ctx, user.ID, randomLead(time.Now()))
		if errors.Is(err, repository.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("create lead: %w", err)
		}
		created++
	}

	fmt.Printf("Created %d demo leads.\n", created)
	fmt.Println("Demo credentials:")
	fmt.Printf("Email: %s\n", demoEmail)
	fmt.Printf("Password: %s\n", demoPassword)
	return nil
}

// demoUser returns the demo account, creating it on first run.
func demoUser(ctx context.Context, repo repository.UserRepo) (*models.User, error) {
	u, err := repo.GetUserByEmail(ctx, demoEmail)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return nil, err
	}
	u = &models.User{ID: uuid.NewString(), Email: demoEmail, PasswordHash: hash, FirstName: "Demo", LastName: "User"}
	if err := repo.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create demo user: %w", err)
	}
	return u, nil
}

func pick[T any](s []T) T { return s[rand.IntN(len(s))] }

func randomLead(now time.Time) leads.Input {
	first, last := pick(firstNames), pick(lastNames)
	in := leads.Input{
		"firstName":   first,
		"lastName":    last,
		"email":       fmt.Sprintf("%s.%s%d@example.com", strings.ToLower(first), strings.ToLower(last), rand.IntN(1000)),
		"phone":       fmt.Sprintf("+1%d", 1000000000+rand.Int64N(9000000000)),
		"company":     pick(companies),
		"city":        pick(cities),
		"state":       pick(states),
		"source":      string(pick(models.Sources)),
		"status":      string(pick(models.Statuses)),
		"score":       float64(rand.IntN(101)),
		"leadValue":   float64(rand.IntN(50000) + 1000),
		"isQualified": rand.Float64() > 0.6,
	}
	if rand.Float64() > 0.3 {
		ago := time.Duration(rand.Int64N(int64(30 * 24 * time.Hour)))
		in["lastActivityAt"] = now.Add(-ago).UTC().Format(time.RFC3339Nano)
	}
	return in
}
