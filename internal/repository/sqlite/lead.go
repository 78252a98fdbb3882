package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garnizeh/leads/internal/filter"
	"github.com/garnizeh/leads/pkg/models"
	"github.com/garnizeh/leads/pkg/repository"
)

type leadRow struct {
	ID             string          `db:"id"`
	OwnerID        string          `db:"owner_id"`
	FirstName      string          `db:"first_name"`
	LastName       string          `db:"last_name"`
	Email          string          `db:"email"`
	Phone          sql.NullString  `db:"phone"`
	Company        sql.NullString  `db:"company"`
	City           sql.NullString  `db:"city"`
	State          sql.NullString  `db:"state"`
	Source         string          `db:"source"`
	Status         string          `db:"status"`
	Score          int             `db:"score"`
	LeadValue      sql.NullFloat64 `db:"lead_value"`
	LastActivityAt sql.NullInt64   `db:"last_activity_at"`
	IsQualified    bool            `db:"is_qualified"`
	CreatedAt      int64           `db:"created_at"`
	UpdatedAt      int64           `db:"updated_at"`
}

const leadColumns = `id, owner_id, first_name, last_name, email, phone, company, city, state, source, status, score, lead_value, last_activity_at, is_qualified, created_at, updated_at`

func (l leadRow) model() models.Lead {
	m := models.Lead{
		ID:          l.ID,
		OwnerID:     l.OwnerID,
		FirstName:   l.FirstName,
		LastName:    l.LastName,
		Email:       l.Email,
		Phone:       l.Phone.String,
		Company:     l.Company.String,
		City:        l.City.String,
		State:       l.State.String,
		Source:      models.Source(l.Source),
		Status:      models.Status(l.Status),
		Score:       l.Score,
		IsQualified: l.IsQualified,
		CreatedAt:   fromMillis(l.CreatedAt),
		UpdatedAt:   fromMillis(l.UpdatedAt),
	}
	if l.LeadValue.Valid {
		v := l.LeadValue.Float64
		m.LeadValue = &v
	}
	if l.LastActivityAt.Valid {
		t := fromMillis(l.LastActivityAt.Int64)
		m.LastActivityAt = &t
	}
	return m
}

// optional text columns store NULL for empty strings so absent fields never
// match a filter.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func leadArgs(l *models.Lead) []any {
	var value sql.NullFloat64
	if l.LeadValue != nil {
		value = sql.NullFloat64{Float64: *l.LeadValue, Valid: true}
	}
	var activity sql.NullInt64
	if l.LastActivityAt != nil {
		activity = sql.NullInt64{Int64: l.LastActivityAt.UnixMilli(), Valid: true}
	}
	return []any{
		l.FirstName, l.LastName, l.Email,
		nullString(l.Phone), nullString(l.Company), nullString(l.City), nullString(l.State),
		string(l.Source), string(l.Status), l.Score, value, activity, l.IsQualified,
	}
}

func (r *SQLiteRepo) CreateLead(ctx context.Context, l *models.Lead) error {
	if l == nil {
		return fmt.Errorf("lead is nil")
	}

	ts := now()
	args := append([]any{l.ID, l.OwnerID}, leadArgs(l)...)
	args = append(args, ts.UnixMilli(), ts.UnixMilli())

	if _, err := r.conn.Exec(ctx, `INSERT INTO leads (`+leadColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...); err != nil {
		if isUnique(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert lead: %w", err)
	}

	l.CreatedAt, l.UpdatedAt = ts, ts
	return nil
}

func (r *SQLiteRepo) GetLead(ctx context.Context, id, ownerID string) (*models.Lead, error) {
	var row leadRow
	if err := r.conn.Get(ctx, &row, `SELECT `+leadColumns+` FROM leads WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	m := row.model()
	return &m, nil
}

// UpdateLead replaces every mutable column. Id, owner and creation time are
// never written.
func (r *SQLiteRepo) UpdateLead(ctx context.Context, l *models.Lead) error {
	if l == nil {
		return fmt.Errorf("lead is nil")
	}

	ts := now()
	args := append(leadArgs(l), ts.UnixMilli(), l.ID, l.OwnerID)

	res, err := r.conn.Exec(ctx, `UPDATE leads SET
		first_name = ?, last_name = ?, email = ?, phone = ?, company = ?, city = ?, state = ?,
		source = ?, status = ?, score = ?, lead_value = ?, last_activity_at = ?, is_qualified = ?,
		updated_at = ?
		WHERE id = ? AND owner_id = ?`, args...)
	if err != nil {
		if isUnique(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("update lead: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	l.UpdatedAt = ts
	return nil
}

func (r *SQLiteRepo) DeleteLead(ctx context.Context, id, ownerID string) error {
	res, err := r.conn.Exec(ctx, `DELETE FROM leads WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) FindLeads(ctx context.Context, q filter.Query, p filter.Page) ([]models.Lead, error) {
	where, args, err := compileWhere(q)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + leadColumns + ` FROM leads WHERE ` + where + ` ORDER BY ` + orderBy(p) + ` LIMIT ? OFFSET ?`
	args = append(args, p.Limit, p.Skip)

	var rows []leadRow
	if err := r.conn.Select(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("find leads: %w", err)
	}
	r.logger.Debug("find leads", "where", where, "rows", len(rows))

	out := make([]models.Lead, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.model())
	}
	return out, nil
}

func (r *SQLiteRepo) CountLeads(ctx context.Context, q filter.Query) (int64, error) {
	where, args, err := compileWhere(q)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := r.conn.Get(ctx, &n, `SELECT COUNT(1) FROM leads WHERE `+where, args...); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}
