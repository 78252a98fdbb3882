package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	driver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/garnizeh/leads/internal/filter"
	"github.com/garnizeh/leads/internal/repository/mongo"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository"
)

// connectStore opens a store on a throwaway database of the server named by
// LEADS_MONGO_URI and drops that database when the test ends.
func connectStore(t *testing.T) *mongo.Store {
	t.Helper()
	uri := os.Getenv("LEADS_MONGO_URI")
	if uri == "" {
		t.Skip("LEADS_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	database := "leads_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	s, err := mongo.Connect(ctx, uri, database, nil)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		client, err := driver.Connect(options.Client().ApplyURI(uri))
		if err != nil {
			t.Logf("connect for cleanup: %v", err)
			return
		}
		defer client.Disconnect(ctx)
		if err := client.Database(database).Drop(ctx); err != nil {
			t.Logf("drop %s: %v", database, err)
		}
	})
	return s
}

func newUser(t *testing.T, s *mongo.Store, email string) *models.User {
	t.Helper()
	u := &models.User{ID: uuid.NewString(), Email: email, PasswordHash: "hash", FirstName: "Test", LastName: "User"}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func newLead(owner, email string) *models.Lead {
	return &models.Lead{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     email,
		Source:    models.SourceWebsite,
		Status:    models.StatusNew,
	}
}

func TestStore_Users(t *testing.T) {
	s := connectStore(t)
	ctx := context.Background()

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	u := newUser(t, s, "alice@example.com")
	if u.CreatedAt.IsZero() {
		t.Fatalf("expected CreatedAt to be set")
	}

	got, err := s.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Email != u.Email || got.PasswordHash != "hash" || !got.CreatedAt.Equal(u.CreatedAt) {
		t.Fatalf("GetUserByID wrong result: %#v", got)
	}

	dup := &models.User{ID: uuid.NewString(), Email: u.Email, PasswordHash: "x"}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func TestStore_LeadCRUD(t *testing.T) {
	s := connectStore(t)
	ctx := context.Background()

	alice := newUser(t, s, "alice@example.com")
	bob := newUser(t, s, "bob@example.com")

	l := newLead(alice.ID, "jane@corp.com")
	if err := s.CreateLead(ctx, l); err != nil {
		t.Fatalf("CreateLead: %v", err)
	}

	if err := s.CreateLead(ctx, newLead(alice.ID, "jane@corp.com")); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email per owner, got %v", err)
	}
	if err := s.CreateLead(ctx, newLead(bob.ID, "jane@corp.com")); err != nil {
		t.Fatalf("same email under another owner: %v", err)
	}

	if _, err := s.GetLead(ctx, l.ID, bob.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for another owner, got %v", err)
	}

	created := l.CreatedAt
	time.Sleep(5 * time.Millisecond)

	upd := *l
	upd.Status = models.StatusWon
	upd.CreatedAt = time.Time{}
	if err := s.UpdateLead(ctx, &upd); err != nil {
		t.Fatalf("UpdateLead: %v", err)
	}
	if !upd.CreatedAt.Equal(created) || !upd.UpdatedAt.After(created) {
		t.Fatalf("timestamps after update: created=%v updated=%v, want created=%v", upd.CreatedAt, upd.UpdatedAt, created)
	}

	got, err := s.GetLead(ctx, l.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetLead: %v", err)
	}
	if got.Status != models.StatusWon || !got.CreatedAt.Equal(created) {
		t.Fatalf("stored lead after update: %#v", got)
	}

	other := newLead(alice.ID, "other@corp.com")
	if err := s.CreateLead(ctx, other); err != nil {
		t.Fatalf("CreateLead other: %v", err)
	}
	clash := *other
	clash.Email = l.Email
	if err := s.UpdateLead(ctx, &clash); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict when updating onto a taken email, got %v", err)
	}

	foreign := *l
	foreign.OwnerID = bob.ID
	if err := s.UpdateLead(ctx, &foreign); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating as another owner, got %v", err)
	}

	if err := s.DeleteLead(ctx, l.ID, bob.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting as another owner, got %v", err)
	}
	if err := s.DeleteLead(ctx, l.ID, alice.ID); err != nil {
		t.Fatalf("DeleteLead: %v", err)
	}
	if _, err := s.GetLead(ctx, l.ID, alice.ID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestStore_FindAndCountLeads(t *testing.T) {
	s := connectStore(t)
	ctx := context.Background()

	alice := newUser(t, s, "alice@example.com")
	bob := newUser(t, s, "bob@example.com")
	for _, owner := range []string{alice.ID, bob.ID} {
		for i := range 6 {
			l := newLead(owner, fmt.Sprintf("lead%d@corp.com", i))
			l.Score = i * 10
			if i%2 == 0 {
				l.Company = "ÉCOLE Supérieure"
				l.Status = models.StatusWon
			}
			if err := s.CreateLead(ctx, l); err != nil {
				t.Fatalf("CreateLead: %v", err)
			}
		}
	}

	tests := []struct {
		name   string
		params url.Values
		want   int64
	}{
		{"All", url.Values{}, 6},
		{"StatusEq", url.Values{"status_eq": {"won"}}, 3},
		{"ContainsUnicode", url.Values{"company_contains": {"école"}}, 3},
		{"ScoreBetween", url.Values{"score_between": {"10,30"}}, 3},
		{"Combined", url.Values{"status_eq": {"won"}, "score_gt": {"10"}}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := filter.Build(tt.params, alice.ID)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			n, err := s.CountLeads(ctx, q)
			if err != nil {
				t.Fatalf("CountLeads: %v", err)
			}
			if n != tt.want {
				t.Fatalf("CountLeads = %d, want %d", n, tt.want)
			}

			rows, err := s.FindLeads(ctx, q, filter.ResolvePage("1", "100", "score:asc"))
			if err != nil {
				t.Fatalf("FindLeads: %v", err)
			}
			if int64(len(rows)) != tt.want {
				t.Fatalf("FindLeads returned %d rows, want %d", len(rows), tt.want)
			}
			for i, r := range rows {
				if r.OwnerID != alice.ID {
					t.Fatalf("lead of another owner returned: %#v", r)
				}
				if i > 0 && rows[i-1].Score > r.Score {
					t.Fatalf("rows not sorted by score: %d before %d", rows[i-1].Score, r.Score)
				}
			}
		})
	}

	page, err := s.FindLeads(ctx, mustBuild(t, url.Values{}, alice.ID), filter.ResolvePage("2", "4", "score:asc"))
	if err != nil {
		t.Fatalf("FindLeads page 2: %v", err)
	}
	if len(page) != 2 || page[0].Score != 40 {
		t.Fatalf("second page = %+v, want 2 rows starting at score 40", page)
	}
}

func mustBuild(t *testing.T, params url.Values, owner string) filter.Query {
	t.Helper()
	q, err := filter.Build(params, owner)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return q
}
