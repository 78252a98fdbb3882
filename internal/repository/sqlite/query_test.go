package sqlite

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/garnizeh/leads/internal/filter"
)

func TestCompileWhere(t *testing.T) {
	tr := filter.Translator{Location: time.UTC}
	q, err := tr.Build(url.Values{
		"company_contains": {"50%"},
		"source_in":        {"website,referral"},
		"createdAt_on":     {"2024-01-02"},
		"isQualified_eq":   {"false"},
		"score_between":    {"1,2"},
		"lastName_eq":      {"O'Brien"},
		"leadValue_gt":     {"10"},
		"updatedAt_before": {"2024-01-01"},
		"not_a_field_eq":   {"x"},
		"status_eq; DROP":  {"x"},
		"ownerId_eq":       {"attacker"},
	}, "owner-1")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	where, args, err := compileWhere(q)
	if err != nil {
		t.Fatalf("compileWhere: %v", err)
	}

	for _, frag := range []string{
		"owner_id = ?",
		"unicode_lower(company) LIKE ? ESCAPE '\\'",
		"source IN (?, ?)",
		"(created_at >= ? AND created_at < ?)",
		"is_qualified = ?",
		"score BETWEEN ? AND ?",
		"last_name = ?",
		"lead_value > ?",
		"updated_at < ?",
	} {
		if !strings.Contains(where, frag) {
			t.Fatalf("where %q missing %q", where, frag)
		}
	}
	if strings.Contains(where, "O'Brien") || strings.Contains(where, "DROP") || strings.Contains(where, "attacker") {
		t.Fatalf("literal leaked into SQL text: %q", where)
	}
	if strings.Count(where, "?") != len(args) {
		t.Fatalf("placeholder count %d != args %d", strings.Count(where, "?"), len(args))
	}
	if args[0] != "owner-1" {
		t.Fatalf("first arg should be owner, got %#v", args[0])
	}

	var sawPattern, sawDay bool
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli()
	for _, a := range args {
		if a == `%50\%%` {
			sawPattern = true
		}
		if a == day {
			sawDay = true
		}
		if a == "attacker" {
			t.Fatalf("owner override leaked into args")
		}
	}
	if !sawPattern {
		t.Fatalf("escaped LIKE pattern not found in %#v", args)
	}
	if !sawDay {
		t.Fatalf("date not converted to unix millis in %#v", args)
	}
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		page filter.Page
		want string
	}{
		{filter.ResolvePage("", "", ""), "created_at DESC, id ASC"},
		{filter.ResolvePage("", "", "leadValue:asc"), "lead_value ASC, id ASC"},
		{filter.Page{SortField: filter.OwnerField}, "created_at ASC, id ASC"},
		{filter.Page{SortField: "id; DROP TABLE leads", SortDesc: true}, "created_at DESC, id ASC"},
	}
	for _, tt := range tests {
		if got := orderBy(tt.page); got != tt.want {
			t.Fatalf("orderBy(%+v) = %q, want %q", tt.page, got, tt.want)
		}
	}
}
