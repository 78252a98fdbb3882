package repository

import (
	"context"
	"errors"

	"github.com/garnizeh/leads/internal/filter"
	"github.com/garnizeh/leads/pkg/models"
)

// Repository interfaces for domain entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

var (
	// ErrNotFound is returned when a record does not exist or is not visible
	// to the requesting owner.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a write violates a uniqueness constraint.
	ErrConflict = errors.New("already exists")
)

type UserRepo interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// LeadRepo stores leads. Every read and write is scoped to an owner: a lead
// belonging to someone else behaves as if it did not exist.
type LeadRepo interface {
	CreateLead(ctx context.Context, l *models.Lead) error
	GetLead(ctx context.Context, id, ownerID string) (*models.Lead, error)
	UpdateLead(ctx context.Context, l *models.Lead) error
	DeleteLead(ctx context.Context, id, ownerID string) error
	FindLeads(ctx context.Context, q filter.Query, p filter.Page) ([]models.Lead, error)
	CountLeads(ctx context.Context, q filter.Query) (int64, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles everything a server needs from a storage backend.
type Store interface {
	UserRepo
	LeadRepo
	Pinger
	Close() error
}
