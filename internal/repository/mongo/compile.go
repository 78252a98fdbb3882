package mongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/garnizeh/leads/internal/filter"
)

// fields maps filter names to stored document keys.
var fields = map[string]string{
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

// Compile turns q into a document filter. Every clause becomes one element
// of a top-level $and so repeated fields combine instead of overwriting.
func Compile(q filter.Query) (bson.M, error) {
	if q.OwnerID() == "" {
		return nil, fmt.Errorf("query is not scoped to an owner")
	}

	parts := make(bson.A, 0, len(q.Clauses))
	for _, c := range q.Clauses {
		key, ok := fields[c.Field]
		if !ok {
			return nil, fmt.Errorf("unknown filter field %q", c.Field)
		}

		var cond any
		switch c.Op {
		case filter.OpEq:
			cond = c.Value
		case filter.OpContains:
			s, _ := c.Value.(string)
			cond = bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
		case filter.OpIn:
			cond = bson.M{"$in": bson.A(c.Values)}
		case filter.OpGt, filter.OpAfter:
			cond = bson.M{"$gt": c.Value}
		case filter.OpLt, filter.OpBefore:
			cond = bson.M{"$lt": c.Value}
		case filter.OpBetween:
			cond = bson.M{"$gte": c.Min, "$lte": c.Max}
		case filter.OpOn:
			cond = bson.M{"$gte": c.Min, "$lt": c.Max}
		default:
			return nil, fmt.Errorf("unsupported operator %s", c.Op)
		}
		parts = append(parts, bson.M{key: cond})
	}

	return bson.M{"$and": parts}, nil
}

// Sort orders by the page's field with the id as a stable tiebreak.
func Sort(p filter.Page) bson.D {
	key, ok := fields[p.SortField]
	if !ok || p.SortField == filter.OwnerField {
		key = fields[filter.DefaultSortField]
	}
	dir := 1
	if p.SortDesc {
		dir = -1
	}
	return bson.D{{Key: key, Value: dir}, {Key: "_id", Value: 1}}
}
