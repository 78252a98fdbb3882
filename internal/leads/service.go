// Package leads implements the owner-scoped lead operations: listing with
// filters and pagination, and single-record create, read, update and delete.
package leads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/garnizeh/leads/internal/filter"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository"
)

var errNoOwner = errors.New("owner id is required")

// ListResult is one page of leads plus the total number of matches.
type ListResult struct {
	Data       []models.Lead `json:"data"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int64         `json:"total"`
	TotalPages int64         `json:"totalPages"`
}

type Service struct {
	repo       repository.LeadRepo
	validator  *Validator
	translator filter.Translator
	logger     *slog.Logger
}

// NewService wires a lead repository. loc is the zone date-only filter
// literals are read in; nil means the server's local zone.
func NewService(repo repository.LeadRepo, loc *time.Location, logger *slog.Logger) (*Service, error) {
	v, err := NewValidator()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Service{
		repo:       repo,
		validator:  v,
		translator: filter.Translator{Location: loc},
		logger:     logger,
	}, nil
}

// List returns the page of ownerID's leads selected by params. The page,
// limit and sort keys control the window; every other key is a filter.
// The count and the page are read concurrently and are not a snapshot: a
// write landing between them may show up in one but not the other.
func (s *Service) List(ctx context.Context, ownerID string, params url.Values) (*ListResult, error) {
	if ownerID == "" {
		return nil, errNoOwner
	}

	page := filter.ResolvePage(params.Get("page"), params.Get("limit"), params.Get("sort"))

	rest := url.Values{}
	for k, v := range params {
		rest[k] = v
	}
	for _, k := range filter.PageKeys {
		delete(rest, k)
	}

	q, err := s.translator.Build(rest, ownerID)
	if err != nil {
		return nil, err
	}

	var (
		data  []models.Lead
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		data, err = s.repo.FindLeads(gctx, q, page)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.repo.CountLeads(gctx, q)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}

	if data == nil {
		data = []models.Lead{}
	}
	limit := int64(page.Limit)
	return &ListResult{
		Data:       data,
		Page:       page.Page,
		Limit:      page.Limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

// Create validates in and stores it as a new lead of ownerID. Owner, id and
// timestamps in the payload are ignored.
func (s *Service) Create(ctx context.Context, ownerID string, in Input) (*models.Lead, error) {
	if ownerID == "" {
		return nil, errNoOwner
	}

	l, err := s.validator.New(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}
	l.ID = uuid.NewString()

	if err := s.repo.CreateLead(ctx, l); err != nil {
		return nil, err
	}
	s.logger.Info("lead created", "owner", ownerID, "lead", l.ID)
	return l, nil
}

// Get returns ownerID's lead. Unknown, malformed or foreign ids all yield
// repository.ErrNotFound.
func (s *Service) Get(ctx context.Context, ownerID, id string) (*models.Lead, error) {
	if ownerID == "" {
		return nil, errNoOwner
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, repository.ErrNotFound
	}
	return s.repo.GetLead(ctx, id, ownerID)
}

// Update merges in into the stored lead and re-validates the result.
// Applying the same input twice leaves the lead unchanged apart from its
// update time.
func (s *Service) Update(ctx context.Context, ownerID, id string, in Input) (*models.Lead, error) {
	existing, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	l, err := s.validator.Merge(ctx, existing, in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateLead(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return errNoOwner
	}
	if _, err := uuid.Parse(id); err != nil {
		return repository.ErrNotFound
	}
	if err := s.repo.DeleteLead(ctx, id, ownerID); err != nil {
		return err
	}
	s.logger.Info("lead deleted", "owner", ownerID, "lead", id)
	return nil
}
