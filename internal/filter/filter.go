// Package filter turns flat `field_operator=value` query parameters into a
// typed, owner-scoped predicate and resolves pagination and ordering.
package filter

import (
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Operator is the closed set of comparison operators a filter key may use.
type Operator int

const (
	OpEq Operator = iota + 1
	OpContains
	OpIn
	OpGt
	OpLt
	OpBetween
	OpBefore
	OpAfter
	OpOn
)

var operatorNames = map[string]Operator{
	"eq":       OpEq,
	"contains": OpContains,
	"in":       OpIn,
	"gt":       OpGt,
	"lt":       OpLt,
	"between":  OpBetween,
	"before":   OpBefore,
	"after":    OpAfter,
	"on":       OpOn,
}

// ParseOperator maps an operator suffix to its Operator.
func ParseOperator(s string) (Operator, bool) {
	op, ok := operatorNames[s]
	return op, ok
}

func (o Operator) String() string {
	for name, op := range operatorNames {
		if op == o {
			return name
		}
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// Clause is one predicate fragment. Which value fields are set depends on Op:
//
//	OpEq, OpContains, OpGt, OpLt, OpBefore, OpAfter: Value
//	OpIn:                                            Values
//	OpBetween:                                       Min <= x <= Max
//	OpOn:                                            Min <= x <  Max
//
// Values are typed: string, float64, bool or time.Time.
type Clause struct {
	Field  string
	Op     Operator
	Value  any
	Values []any
	Min    any
	Max    any
}

// Query is a conjunction of clauses. The first clause is always the owner
// equality built by Build.
type Query struct {
	Clauses []Clause
}

// OwnerID returns the owner the query is scoped to.
func (q Query) OwnerID() string {
	for _, c := range q.Clauses {
		if c.Field == OwnerField && c.Op == OpEq {
			s, _ := c.Value.(string)
			return s
		}
	}
	return ""
}

// InvalidFilterError lists every filter parameter whose literal could not be
// parsed for its field.
type InvalidFilterError struct {
	Params map[string]string
}

func (e *InvalidFilterError) Error() string {
	return "invalid filter: " + strings.Join(e.Messages(), "; ")
}

// Messages returns "key: reason" for each parameter, ordered by key.
func (e *InvalidFilterError) Messages() []string {
	keys := make([]string, 0, len(e.Params))
	for k := range e.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+": "+e.Params[k])
	}
	return out
}

// Translator builds queries. Location is used for date-only literals; a nil
// Location means time.Local.
type Translator struct {
	Location *time.Location
}

// Build translates params with the local time zone.
func Build(params url.Values, ownerID string) (Query, error) {
	return Translator{}.Build(params, ownerID)
}

// Build returns a query scoped to ownerID with one clause per recognised,
// non-empty parameter. Keys without a known operator or field are ignored.
// Keys are processed in sorted order so the clause order is stable.
func (t Translator) Build(params url.Values, ownerID string) (Query, error) {
	q := Query{Clauses: []Clause{{Field: OwnerField, Op: OpEq, Value: ownerID}}}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	invalid := map[string]string{}
	for _, key := range keys {
		value := params.Get(key)
		if value == "" {
			continue
		}

		i := strings.LastIndex(key, "_")
		if i <= 0 {
			continue
		}
		field, opName := key[:i], key[i+1:]

		op, ok := ParseOperator(opName)
		if !ok {
			continue
		}
		kind, ok := Lookup(field)
		if !ok {
			continue
		}

		c, err := t.clause(field, kind, op, value)
		if err != nil {
			invalid[key] = err.Error()
			continue
		}
		q.Clauses = append(q.Clauses, c)
	}

	if len(invalid) > 0 {
		return Query{}, &InvalidFilterError{Params: invalid}
	}

	return q, nil
}

func (t Translator) clause(field string, kind Kind, op Operator, value string) (Clause, error) {
	c := Clause{Field: field, Op: op}

	switch op {
	case OpEq:
		v, err := t.literal(field, kind, value)
		if err != nil {
			return c, err
		}
		c.Value = v

	case OpContains:
		if kind != KindText {
			return c, fmt.Errorf("contains is not supported on %s field", kind)
		}
		c.Value = value

	case OpIn:
		parts := strings.Split(value, ",")
		c.Values = make([]any, 0, len(parts))
		for _, p := range parts {
			v, err := t.literal(field, kind, strings.TrimSpace(p))
			if err != nil {
				return c, err
			}
			c.Values = append(c.Values, v)
		}

	case OpGt, OpLt:
		v, err := t.bound(kind, value)
		if err != nil {
			return c, err
		}
		c.Value = v

	case OpBetween:
		parts := strings.Split(value, ",")
		if len(parts) < 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return c, fmt.Errorf("between expects min,max")
		}
		lo, hi := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		if isDateField(field) {
			from, err := t.parseDate(lo)
			if err != nil {
				return c, err
			}
			to, err := t.parseDate(hi)
			if err != nil {
				return c, err
			}
			c.Min, c.Max = from, to
			break
		}
		if kind != KindNumber {
			return c, fmt.Errorf("between is not supported on %s field", kind)
		}
		from, err := parseNumber(lo)
		if err != nil {
			return c, err
		}
		to, err := parseNumber(hi)
		if err != nil {
			return c, err
		}
		c.Min, c.Max = from, to

	case OpBefore, OpAfter, OpOn:
		if kind != KindDate {
			return c, fmt.Errorf("%s is not supported on %s field", op, kind)
		}
		d, err := t.parseDate(value)
		if err != nil {
			return c, err
		}
		if op != OpOn {
			c.Value = d
			break
		}
		c.Min, c.Max = d, d.AddDate(0, 0, 1)
	}

	return c, nil
}

// literal parses an equality operand for the field's kind.
func (t Translator) literal(field string, kind Kind, value string) (any, error) {
	switch kind {
	case KindNumber:
		return parseNumber(value)
	case KindDate:
		return t.parseDate(value)
	case KindBool:
		switch value {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("%s expects true or false", field)
	}
	return value, nil
}

// bound parses a gt/lt operand. Date fields accept a date literal or a
// number of milliseconds since the Unix epoch.
func (t Translator) bound(kind Kind, value string) (any, error) {
	switch kind {
	case KindNumber:
		return parseNumber(value)
	case KindDate:
		if n, err := parseNumber(value); err == nil {
			return time.UnixMilli(int64(n)).In(t.location()), nil
		}
		return t.parseDate(value)
	}
	return nil, fmt.Errorf("range comparison is not supported on %s field", kind)
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// parseDate accepts RFC 3339 timestamps and zone-less dates or date-times,
// which are read in the translator's location.
func (t Translator) parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return d, nil
	}
	for _, layout := range dateLayouts {
		if d, err := time.ParseInLocation(layout, s, t.location()); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not a valid date", s)
}

func (t Translator) location() *time.Location {
	if t.Location == nil {
		return time.Local
	}
	return t.Location
}
