package mock

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/garnizeh/leads/internal/filter"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository"
)

// Store is an in-memory repository.Store for tests. The *Err fields, when
// set, are returned by the matching operation instead of touching state.
type Store struct {
	mu    sync.Mutex
	users map[string]models.User
	leads map[string]models.Lead

	CreateErr error
	FindErr   error
	CountErr  error
	PingErr   error

	// FindCalls and CountCalls record how often the list operations ran.
	FindCalls  int
	CountCalls int

	// Clock stamps created and updated times; nil means time.Now.
	Clock func() time.Time
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		users: map[string]models.User{},
		leads: map[string]models.Lead{},
	}
}

func (m *Store) CreateUser(ctx context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return repository.ErrConflict
		}
	}
	ts := m.now()
	u.CreatedAt, u.UpdatedAt = ts, ts
	m.users[u.ID] = *u
	return nil
}

func (m *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (m *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *Store) CreateLead(ctx context.Context, l *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.emailTaken(l) {
		return repository.ErrConflict
	}
	ts := m.now()
	l.CreatedAt, l.UpdatedAt = ts, ts
	m.leads[l.ID] = *l
	return nil
}

func (m *Store) GetLead(ctx context.Context, id, ownerID string) (*models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok || l.OwnerID != ownerID {
		return nil, repository.ErrNotFound
	}
	return &l, nil
}

func (m *Store) UpdateLead(ctx context.Context, l *models.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.leads[l.ID]
	if !ok || existing.OwnerID != l.OwnerID {
		return repository.ErrNotFound
	}
	if m.emailTaken(l) {
		return repository.ErrConflict
	}
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = m.now()
	m.leads[l.ID] = *l
	return nil
}

func (m *Store) DeleteLead(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leads[id]
	if !ok || l.OwnerID != ownerID {
		return repository.ErrNotFound
	}
	delete(m.leads, id)
	return nil
}

func (m *Store) FindLeads(ctx context.Context, q filter.Query, p filter.Page) ([]models.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls++
	if m.FindErr != nil {
		return nil, m.FindErr
	}

	matched := m.match(q)
	slices.SortFunc(matched, func(a, b models.Lead) int {
		n := compareField(FieldValue(&a, p.SortField), FieldValue(&b, p.SortField))
		if p.SortDesc {
			n = -n
		}
		if n != 0 {
			return n
		}
		return strings.Compare(a.ID, b.ID)
	})

	if p.Skip >= len(matched) {
		return []models.Lead{}, nil
	}
	end := min(p.Skip+p.Limit, len(matched))
	return matched[p.Skip:end], nil
}

func (m *Store) CountLeads(ctx context.Context, q filter.Query) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CountCalls++
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return int64(len(m.match(q))), nil
}

func (m *Store) Ping(ctx context.Context) error { return m.PingErr }

func (m *Store) Close() error { return nil }

// Leads returns a copy of every stored lead regardless of owner.
func (m *Store) Leads() []models.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Lead, 0, len(m.leads))
	for _, l := range m.leads {
		out = append(out, l)
	}
	return out
}

func (m *Store) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now()
}

func (m *Store) match(q filter.Query) []models.Lead {
	var out []models.Lead
	for _, l := range m.leads {
		if q.Match(func(field string) any { return FieldValue(&l, field) }) {
			out = append(out, l)
		}
	}
	return out
}

func (m *Store) emailTaken(l *models.Lead) bool {
	for _, other := range m.leads {
		if other.ID != l.ID && other.OwnerID == l.OwnerID && other.Email == l.Email {
			return true
		}
	}
	return false
}

// FieldValue returns a lead attribute by its filter name using the value
// types filter clauses carry. Unset optional attributes are nil.
func FieldValue(l *models.Lead, field string) any {
	str := func(s string) any {
		if s == "" {
			return nil
		}
		return s
	}

	switch field {
	case filter.OwnerField:
		return l.OwnerID
	case "firstName":
		return l.FirstName
	case "lastName":
		return l.LastName
	case "email":
		return l.Email
	case "phone":
		return str(l.Phone)
	case "company":
		return str(l.Company)
	case "city":
		return str(l.City)
	case "state":
		return str(l.State)
	case "source":
		return string(l.Source)
	case "status":
		return string(l.Status)
	case "score":
		return float64(l.Score)
	case "leadValue":
		if l.LeadValue == nil {
			return nil
		}
		return *l.LeadValue
	case "lastActivityAt":
		if l.LastActivityAt == nil {
			return nil
		}
		return *l.LastActivityAt
	case filter.QualifiedField:
		return l.IsQualified
	case "createdAt":
		return l.CreatedAt
	case "updatedAt":
		return l.UpdatedAt
	}
	return nil
}

// compareField orders nil first, like an ascending index over a sparse
// field.
func compareField(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	switch x := a.(type) {
	case string:
		return cmp.Compare(x, b.(string))
	case float64:
		return cmp.Compare(x, b.(float64))
	case time.Time:
		return x.Compare(b.(time.Time))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}
