package canonical

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/query"
)

// Field labels and separators of the canonical structured form.
const (
	labelJobTitle   = "Job Title"
	labelSkills     = "Required Skills"
	labelExperience = "Experience Level"
	labelContext    = "Context"

	fieldSeparator = " | "
	skillSeparator = ", "
)

// Service turns queries of any shape into one deterministic string plus intent.
type Service struct {
	classifier Classifier
}

// New creates a canonicalizer. A nil classifier falls back to the keyword one.
func New(classifier Classifier) *Service {
	if classifier == nil {
		classifier = NewKeywordClassifier(nil, nil)
	}
	return &Service{classifier: classifier}
}

// Canonicalize validates q and builds its canonical form.
func (s *Service) Canonicalize(q query.Query) (query.Canonical, error) {
	if err := q.Validate(); err != nil {
		return query.Canonical{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	var text string
	if q.IsStructured() {
		text = encodeFields(q.Fields())
	} else {
		text = collapse(q.Text())
	}

	return query.Canonical{
		Text:   text,
		Intent: s.classifier.Classify(text),
	}, nil
}

// encodeFields writes fields in fixed order, omitting absent ones.
func encodeFields(f query.Fields) string {
	parts := make([]string, 0, 4)
	if v := collapse(f.JobTitle); v != "" {
		parts = append(parts, labelJobTitle+": "+v)
	}

	skills := make([]string, 0, len(f.Skills))
	for _, sk := range f.Skills {
		if v := collapse(sk); v != "" {
			skills = append(skills, v)
		}
	}
	if len(skills) > 0 {
		parts = append(parts, labelSkills+": "+strings.Join(skills, skillSeparator))
	}

	if v := collapse(f.ExperienceLevel); v != "" {
		parts = append(parts, labelExperience+": "+v)
	}
	if v := collapse(f.Context); v != "" {
		parts = append(parts, labelContext+": "+v)
	}
	return strings.Join(parts, fieldSeparator)
}

// collapse trims and folds internal whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
