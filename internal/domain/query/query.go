package query

import (
	"fmt"
	"strings"
)

// MaxLength is the maximum query size in bytes, free text or all fields combined.
const MaxLength = 4096

// Fields is the structured query shape.
type Fields struct {
	JobTitle        string
	Skills          []string
	ExperienceLevel string
	Context         string
}

// IsZero reports whether no field carries content.
func (f Fields) IsZero() bool {
	if strings.TrimSpace(f.JobTitle) != "" ||
		strings.TrimSpace(f.ExperienceLevel) != "" ||
		strings.TrimSpace(f.Context) != "" {
		return false
	}
	for _, s := range f.Skills {
		if strings.TrimSpace(s) != "" {
			return false
		}
	}
	return true
}

func (f Fields) size() int {
	n := len(f.JobTitle) + len(f.ExperienceLevel) + len(f.Context)
	for _, s := range f.Skills {
		n += len(s)
	}
	return n
}

// Query is a recommendation request: free text or structured fields, never both.
type Query struct {
	text   string
	fields Fields
}

// FromText creates a free-text query.
func FromText(text string) Query {
	return Query{text: text}
}

// FromFields creates a structured query. Skills are copied.
func FromFields(f Fields) Query {
	f.Skills = append([]string(nil), f.Skills...)
	return Query{fields: f}
}

// New creates a query from whichever shape the caller received.
// Validate rejects the result when both shapes are populated.
func New(text string, f Fields) Query {
	q := FromFields(f)
	q.text = text
	return q
}

// Text returns the free-text form (empty for structured queries).
func (q Query) Text() string { return q.text }

// Fields returns the structured form.
func (q Query) Fields() Fields {
	f := q.fields
	f.Skills = append([]string(nil), f.Skills...)
	return f
}

// IsStructured reports whether the query uses the structured shape.
func (q Query) IsStructured() bool {
	return !q.fields.IsZero()
}

// IsEmpty reports whether the query has no content at all.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(q.text) == "" && q.fields.IsZero()
}

// Validate checks the query is usable.
func (q Query) Validate() error {
	hasText := strings.TrimSpace(q.text) != ""
	hasFields := !q.fields.IsZero()
	switch {
	case !hasText && !hasFields:
		return fmt.Errorf("query is empty")
	case hasText && hasFields:
		return fmt.Errorf("query must be either free text or structured fields, not both")
	}
	if n := len(q.text) + q.fields.size(); n > MaxLength {
		return fmt.Errorf("query too long: %d bytes (max %d)", n, MaxLength)
	}
	return nil
}
