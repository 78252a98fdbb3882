package filter

import (
	"strings"
	"time"
)

// Match evaluates the query in memory. value returns the current value of a
// field, or nil when the field is absent.
func (q Query) Match(value func(field string) any) bool {
	for _, c := range q.Clauses {
		if !c.Matches(value(c.Field)) {
			return false
		}
	}
	return true
}

// Matches reports whether v satisfies the clause. Absent values (nil) only
// satisfy nothing.
func (c Clause) Matches(v any) bool {
	if v == nil {
		return false
	}

	switch c.Op {
	case OpEq:
		return equal(v, c.Value)
	case OpContains:
		s, ok := v.(string)
		needle, _ := c.Value.(string)
		return ok && strings.Contains(strings.ToLower(s), strings.ToLower(needle))
	case OpIn:
		for _, want := range c.Values {
			if equal(v, want) {
				return true
			}
		}
		return false
	case OpGt, OpAfter:
		n, ok := compare(v, c.Value)
		return ok && n > 0
	case OpLt, OpBefore:
		n, ok := compare(v, c.Value)
		return ok && n < 0
	case OpBetween:
		lo, ok1 := compare(v, c.Min)
		hi, ok2 := compare(v, c.Max)
		return ok1 && ok2 && lo >= 0 && hi <= 0
	case OpOn:
		lo, ok1 := compare(v, c.Min)
		hi, ok2 := compare(v, c.Max)
		return ok1 && ok2 && lo >= 0 && hi < 0
	}
	return false
}

func equal(a, b any) bool {
	n, ok := compare(a, b)
	if ok {
		return n == 0
	}
	return a == b
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(x, y), true
	}

	x, ok1 := number(a)
	y, ok2 := number(b)
	if !ok1 || !ok2 {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
