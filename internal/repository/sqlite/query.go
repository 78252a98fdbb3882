package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/garnizeh/leads/internal/db"
	"github.com/garnizeh/leads/internal/filter"
	"github.com/jmoiron/sqlx"
)

// columns maps filter fields to lead columns. Only these names ever reach
// the SQL text.
var columns = map[string]string{
	filter.OwnerField:     "owner_id",
	"firstName":           "first_name",
	"lastName":            "last_name",
	"email":               "email",
	"phone":               "phone",
	"company":             "company",
	"city":                "city",
	"state":               "state",
	"source":              "source",
	"status":              "status",
	"score":               "score",
	"leadValue":           "lead_value",
	"lastActivityAt":      "last_activity_at",
	filter.QualifiedField: "is_qualified",
	"createdAt":           "created_at",
	"updatedAt":           "updated_at",
}

// compileWhere renders q as a conjunction of parameterised conditions.
func compileWhere(q filter.Query) (string, []any, error) {
	if q.OwnerID() == "" {
		return "", nil, fmt.Errorf("query is not scoped to an owner")
	}

	conds := make([]string, 0, len(q.Clauses))
	var args []any
	for _, c := range q.Clauses {
		col, ok := columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter field %q", c.Field)
		}

		switch c.Op {
		case filter.OpEq:
			conds = append(conds, col+" = ?")
			args = append(args, arg(c.Value))
		case filter.OpContains:
			s, _ := c.Value.(string)
			conds = append(conds, db.UnicodeLower+"("+col+") LIKE ? ESCAPE '\\'")
			args = append(args, "%"+escapeLike(strings.ToLower(s))+"%")
		case filter.OpIn:
			if len(c.Values) == 0 {
				conds = append(conds, "0")
				continue
			}
			values := make([]any, len(c.Values))
			for i, v := range c.Values {
				values[i] = arg(v)
			}
			frag, inArgs, err := sqlx.In(col+" IN (?)", values)
			if err != nil {
				return "", nil, fmt.Errorf("expand %s: %w", c.Field, err)
			}
			conds = append(conds, frag)
			args = append(args, inArgs...)
		case filter.OpGt, filter.OpAfter:
			conds = append(conds, col+" > ?")
			args = append(args, arg(c.Value))
		case filter.OpLt, filter.OpBefore:
			conds = append(conds, col+" < ?")
			args = append(args, arg(c.Value))
		case filter.OpBetween:
			conds = append(conds, col+" BETWEEN ? AND ?")
			args = append(args, arg(c.Min), arg(c.Max))
		case filter.OpOn:
			conds = append(conds, "("+col+" >= ? AND "+col+" < ?)")
			args = append(args, arg(c.Min), arg(c.Max))
		default:
			return "", nil, fmt.Errorf("unsupported operator %s", c.Op)
		}
	}

	return strings.Join(conds, " AND "), args, nil
}

func orderBy(p filter.Page) string {
	col, ok := columns[p.SortField]
	if !ok || p.SortField == filter.OwnerField {
		col = columns[filter.DefaultSortField]
	}
	dir := "ASC"
	if p.SortDesc {
		dir = "DESC"
	}
	return col + " " + dir + ", id ASC"
}

// arg converts a clause value to its column representation.
func arg(v any) any {
	switch x := v.(type) {
	case time.Time:
		return x.UnixMilli()
	case bool:
		if x {
			return 1
		}
		return 0
	}
	return v
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
