package filter

import (
	"math"
	"strconv"
	"strings"
)

const (
	DefaultLimit     = 20
	MaxLimit         = 100
	DefaultSortField = "createdAt"

	// MaxPage keeps (Page-1)*Limit within an int for any permitted limit.
	MaxPage = math.MaxInt/MaxLimit + 1
)

// Reserved query keys consumed by ResolvePage rather than Build.
var PageKeys = []string{"page", "limit", "sort"}

// Page is a normalised result window and ordering.
type Page struct {
	Page      int
	Limit     int
	Skip      int
	SortField string
	SortDesc  bool
}

// ResolvePage normalises raw page, limit and sort parameters. Page falls
// back to 1, limit to DefaultLimit and is capped at MaxLimit. Sort has the
// form "field:direction"; only "desc" sorts descending. Without a sort the
// newest leads come first.
func ResolvePage(page, limit, sort string) Page {
	p := Page{Page: 1, Limit: DefaultLimit, SortField: DefaultSortField, SortDesc: true}

	if n, err := strconv.Atoi(strings.TrimSpace(page)); err == nil && n > 0 {
		p.Page = min(n, MaxPage)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(limit)); err == nil && n > 0 {
		p.Limit = min(n, MaxLimit)
	}
	p.Skip = (p.Page - 1) * p.Limit

	if sort != "" {
		field, dir, _ := strings.Cut(sort, ":")
		field = strings.TrimSpace(field)
		if _, ok := Lookup(field); ok {
			p.SortField = field
		} else {
			p.SortField = DefaultSortField
		}
		p.SortDesc = strings.TrimSpace(dir) == "desc"
	}

	return p
}
