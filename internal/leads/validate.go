package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/qri-io/jsonschema"

	dbfs "github.com/garnizeh/leads/db"
	"github.com/garnizeh/leads/pkg/models"
)

// ErrInvalidBody is returned when a payload is not a JSON object.
var ErrInvalidBody = errors.New("invalid request body")

// ValidationError maps offending fields to a human readable message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "validation error: " + strings.Join(e.Messages(), "; ")
}

// Messages returns one message per field ordered by field name.
func (e *ValidationError) Messages() []string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, e.Fields[k])
	}
	return out
}

// Input is a decoded lead payload. Only the keys in writable are read; a
// JSON null clears an optional field.
type Input map[string]any

// DecodeInput reads a JSON object.
func DecodeInput(r io.Reader) (Input, error) {
	var in Input
	if err := json.NewDecoder(r).Decode(&in); err != nil || in == nil {
		return nil, ErrInvalidBody
	}
	return in, nil
}

var writable = []string{
	"firstName", "lastName", "email", "phone", "company", "city", "state",
	"source", "status", "score", "leadValue", "lastActivityAt", "isQualified",
}

var textFields = map[string]bool{
	"firstName": true, "lastName": true, "email": true, "phone": true,
	"company": true, "city": true, "state": true, "source": true, "status": true,
}

var required = []string{"firstName", "lastName", "email", "source"}

var requiredMessages = map[string]string{
	"firstName": "First name is required",
	"lastName":  "Last name is required",
	"email":     "Email is required",
	"source":    "Source is required",
}

// Validator checks merged lead documents against the lead JSON Schema and
// the rules the schema cannot express.
type Validator struct {
	schema *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(dbfs.LeadSchema, rs); err != nil {
		return nil, fmt.Errorf("compile lead schema: %w", err)
	}
	return &Validator{schema: rs}, nil
}

// New builds a lead for ownerID from in, applying defaults.
func (v *Validator) New(ctx context.Context, ownerID string, in Input) (*models.Lead, error) {
	doc := map[string]any{
		"status":      string(models.StatusNew),
		"score":       0.0,
		"isQualified": false,
	}
	return v.build(ctx, doc, in, &models.Lead{OwnerID: ownerID})
}

// Merge applies in on top of existing and re-validates the whole lead. The
// id, owner and timestamps of existing are kept.
func (v *Validator) Merge(ctx context.Context, existing *models.Lead, in Input) (*models.Lead, error) {
	base := &models.Lead{
		ID:        existing.ID,
		OwnerID:   existing.OwnerID,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: existing.UpdatedAt,
	}
	return v.build(ctx, document(existing), in, base)
}

func (v *Validator) build(ctx context.Context, doc map[string]any, in Input, base *models.Lead) (*models.Lead, error) {
	for _, k := range writable {
		val, ok := in[k]
		if !ok {
			continue
		}
		if val == nil {
			delete(doc, k)
			continue
		}
		doc[k] = val
	}
	normalize(doc)

	fields := map[string]string{}
	v.checkRules(doc, fields)
	if err := v.checkSchema(ctx, doc, fields); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	return toLead(doc, base), nil
}

// normalize trims text, lowercases the email and drops empty optional text.
func normalize(doc map[string]any) {
	for k, val := range doc {
		s, ok := val.(string)
		if !ok || !textFields[k] {
			continue
		}
		s = strings.TrimSpace(s)
		if k == "email" {
			s = strings.ToLower(s)
		}
		doc[k] = s
	}
	for _, k := range []string{"phone", "company", "city", "state"} {
		if doc[k] == "" {
			delete(doc, k)
		}
	}
}

func (v *Validator) checkRules(doc map[string]any, fields map[string]string) {
	for _, k := range required {
		val, ok := doc[k]
		if !ok || val == "" {
			fields[k] = requiredMessages[k]
		}
	}

	if s, ok := doc["email"].(string); ok && s != "" && !models.ValidEmail(s) {
		fields["email"] = "Please enter a valid email"
	}

	// the schema library accepts "true" and "false" strings as booleans
	if val, ok := doc["isQualified"]; ok {
		if _, isBool := val.(bool); !isBool {
			fields["isQualified"] = "Qualified flag must be true or false"
		}
	}

	if s, ok := doc["lastActivityAt"].(string); ok {
		if _, err := parseActivity(s); err != nil {
			fields["lastActivityAt"] = "Last activity must be a valid date"
		}
	}
}

func (v *Validator) checkSchema(ctx context.Context, doc map[string]any, fields map[string]string) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}

	keyErrs, err := v.schema.ValidateBytes(ctx, b)
	if err != nil {
		return fmt.Errorf("validate lead: %w", err)
	}

	for _, ke := range keyErrs {
		field := schemaField(ke)
		if field == "" {
			// root-level errors the field rules did not already explain
			if len(fields) == 0 {
				fields["_"] = ke.Message
			}
			continue
		}
		if _, ok := fields[field]; ok {
			continue
		}
		fields[field] = fieldMessage(field, doc[field], ke.Message)
	}
	return nil
}

var quotedKey = regexp.MustCompile(`"(\w+)"`)

// schemaField resolves the lead field a schema error refers to: the first
// segment of its property path, or the quoted key of a root-level error.
func schemaField(ke jsonschema.KeyError) string {
	p := strings.TrimLeft(ke.PropertyPath, "#/")
	if i := strings.Index(p, "/"); i >= 0 {
		p = p[:i]
	}
	if p != "" {
		return p
	}
	if m := quotedKey.FindStringSubmatch(ke.Message); m != nil {
		return m[1]
	}
	return ""
}

var labels = map[string]string{
	"phone":   "Phone",
	"company": "Company",
	"city":    "City",
	"state":   "State",
}

func fieldMessage(field string, val any, fallback string) string {
	switch field {
	case "firstName", "lastName", "email":
		if val == nil {
			return requiredMessages[field]
		}
		return strings.TrimSuffix(requiredMessages[field], " is required") + " must be text"
	case "source":
		if val == nil {
			return requiredMessages[field]
		}
		return "Source must be one of: " + joinEnum(models.Sources)
	case "status":
		return "Status must be one of: " + joinEnum(models.Statuses)
	case "score":
		if n, ok := val.(float64); ok {
			switch {
			case n < 0:
				return "Score cannot be less than 0"
			case n > 100:
				return "Score cannot be more than 100"
			}
		}
		return "Score must be a whole number between 0 and 100"
	case "leadValue":
		if n, ok := val.(float64); ok && n < 0 {
			return "Lead value cannot be negative"
		}
		return "Lead value must be a number"
	case "lastActivityAt":
		return "Last activity must be a valid date"
	case "isQualified":
		return "Qualified flag must be true or false"
	}
	if label, ok := labels[field]; ok {
		return label + " must be text"
	}
	return fallback
}

func joinEnum[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}

// parseActivity accepts RFC 3339 timestamps and date-only values, which are
// read as UTC midnight.
func parseActivity(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// document is the inverse of toLead.
func document(l *models.Lead) map[string]any {
	doc := map[string]any{
		"firstName":   l.FirstName,
		"lastName":    l.LastName,
		"email":       l.Email,
		"source":      string(l.Source),
		"status":      string(l.Status),
		"score":       float64(l.Score),
		"isQualified": l.IsQualified,
	}
	for k, s := range map[string]string{"phone": l.Phone, "company": l.Company, "city": l.City, "state": l.State} {
		if s != "" {
			doc[k] = s
		}
	}
	if l.LeadValue != nil {
		doc["leadValue"] = *l.LeadValue
	}
	if l.LastActivityAt != nil {
		doc["lastActivityAt"] = l.LastActivityAt.Format(time.RFC3339Nano)
	}
	return doc
}

// toLead copies a validated document onto base.
func toLead(doc map[string]any, base *models.Lead) *models.Lead {
	l := *base
	str := func(k string) string {
		s, _ := doc[k].(string)
		return s
	}

	l.FirstName = str("firstName")
	l.LastName = str("lastName")
	l.Email = str("email")
	l.Phone = str("phone")
	l.Company = str("company")
	l.City = str("city")
	l.State = str("state")
	l.Source = models.Source(str("source"))
	l.Status = models.Status(str("status"))
	if n, ok := doc["score"].(float64); ok {
		l.Score = int(math.Round(n))
	}
	l.LeadValue = nil
	if n, ok := doc["leadValue"].(float64); ok {
		l.LeadValue = &n
	}
	l.LastActivityAt = nil
	if s, ok := doc["lastActivityAt"].(string); ok {
		if t, err := parseActivity(s); err == nil {
			t = t.UTC()
			l.LastActivityAt = &t
		}
	}
	l.IsQualified, _ = doc["isQualified"].(bool)
	return &l
}
