// Package mongo is a repository.Store backed by MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/garnizeh/leads/internal/filter"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository"
)

const (
	usersCollection = "users"
	leadsCollection = "leads"
)

type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	leads  *mongo.Collection
	logger *slog.Logger
}

var _ repository.Store = (*Store)(nil)

// Connect dials uri, verifies the primary is reachable and makes sure the
// indexes exist.
func Connect(ctx context.Context, uri, database string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	s := &Store{
		client: client,
		users:  client.Database(database).Collection(usersCollection),
		leads:  client.Database(database).Collection(leadsCollection),
		logger: logger,
	}

	if err := s.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// EnsureIndexes creates the unique and listing indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if _, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("create users index: %w", err)
	}

	_, err := s.leads.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "source", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create leads indexes: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func now() time.Time {
	return time.UnixMilli(time.Now().UnixMilli()).UTC()
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}

	ts := now()
	doc := *u
	doc.CreatedAt, doc.UpdatedAt = ts, ts
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	u.CreatedAt, u.UpdatedAt = ts, ts
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": id})
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"email": email})
}

func (s *Store) findUser(ctx context.Context, f bson.M) (*models.User, error) {
	var u models.User
	if err := s.users.FindOne(ctx, f).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *Store) CreateLead(ctx context.Context, l *models.Lead) error {
	if l == nil {
		return fmt.Errorf("lead is nil")
	}

	ts := now()
	doc := *l
	doc.CreatedAt, doc.UpdatedAt = ts, ts
	if _, err := s.leads.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert lead: %w", err)
	}

	l.CreatedAt, l.UpdatedAt = ts, ts
	return nil
}

func (s *Store) GetLead(ctx context.Context, id, ownerID string) (*models.Lead, error) {
	var l models.Lead
	if err := s.leads.FindOne(ctx, bson.M{"_id": id, "owner_id": ownerID}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return &l, nil
}

// UpdateLead replaces the stored document, keeping its creation time.
func (s *Store) UpdateLead(ctx context.Context, l *models.Lead) error {
	if l == nil {
		return fmt.Errorf("lead is nil")
	}

	existing, err := s.GetLead(ctx, l.ID, l.OwnerID)
	if err != nil {
		return err
	}

	doc := *l
	doc.CreatedAt = existing.CreatedAt
	doc.UpdatedAt = now()

	res, err := s.leads.ReplaceOne(ctx, bson.M{"_id": l.ID, "owner_id": l.OwnerID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("replace lead: %w", err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}

	l.CreatedAt, l.UpdatedAt = doc.CreatedAt, doc.UpdatedAt
	return nil
}

func (s *Store) DeleteLead(ctx context.Context, id, ownerID string) error {
	res, err := s.leads.DeleteOne(ctx, bson.M{"_id": id, "owner_id": ownerID})
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (s *Store) FindLeads(ctx context.Context, q filter.Query, p filter.Page) ([]models.Lead, error) {
	f, err := Compile(q)
	if err != nil {
		return nil, err
	}

	opts := options.Find().
		SetSort(Sort(p)).
		SetSkip(int64(p.Skip)).
		SetLimit(int64(p.Limit))

	cur, err := s.leads.Find(ctx, f, opts)
	if err != nil {
		return nil, fmt.Errorf("find leads: %w", err)
	}

	out := []models.Lead{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode leads: %w", err)
	}
	s.logger.Debug("find leads", "filter", f, "rows", len(out))
	return out, nil
}

func (s *Store) CountLeads(ctx context.Context, q filter.Query) (int64, error) {
	f, err := Compile(q)
	if err != nil {
		return 0, err
	}

	n, err := s.leads.CountDocuments(ctx, f)
	if err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}
