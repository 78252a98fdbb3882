package filter

import "strings"

// Kind is the value type of a filterable lead field.
type Kind int

const (
	KindText Kind = iota + 1
	KindNumber
	KindDate
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindDate:
		return "date"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// OwnerField is the clause field that scopes every query to one user. It is
// not part of the filterable catalogue so callers cannot override it.
const OwnerField = "ownerId"

// QualifiedField is the only boolean field; its eq literal is coerced.
const QualifiedField = "isQualified"

var catalogue = map[string]Kind{
	"firstName":      KindText,
	"lastName":       KindText,
	"email":          KindText,
	"phone":          KindText,
	"company":        KindText,
	"city":           KindText,
	"state":          KindText,
	"source":         KindText,
	"status":         KindText,
	"score":          KindNumber,
	"leadValue":      KindNumber,
	"lastActivityAt": KindDate,
	"isQualified":    KindBool,
	"createdAt":      KindDate,
	"updatedAt":      KindDate,
}

// Lookup reports the kind of a filterable field.
func Lookup(field string) (Kind, bool) {
	k, ok := catalogue[field]
	return k, ok
}

// isDateField follows the naming convention for timestamp fields: every
// date-typed lead attribute carries the "At" suffix.
func isDateField(field string) bool {
	return strings.Contains(field, "At")
}
