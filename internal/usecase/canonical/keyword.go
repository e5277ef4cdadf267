package canonical

import (
	"strings"
	"unicode"

	"github.com/kailas-cloud/recdex/internal/domain/query"
)

// DefaultTechnicalKeywords mark a need for knowledge and skills assessments.
var DefaultTechnicalKeywords = []string{
	"java", "python", "sql", "javascript", "typescript", "c++", "c#", ".net",
	"golang", "programming", "programmer", "coding", "developer", "software",
	"engineer", "engineering", "technical", "data", "analyst", "analytics",
	"database", "excel", "cloud", "aws", "devops", "selenium", "automation",
	"qa", "testing", "frontend", "backend", "full stack", "machine learning",
	"numerical", "reasoning", "cognitive", "mechanical", "accounting", "finance",
}

// DefaultSoftSkillKeywords mark a need for personality and behaviour assessments.
var DefaultSoftSkillKeywords = []string{
	"collaboration", "collaborate", "collaborates", "collaborative", "communication",
	"communicate", "teamwork", "team player", "interpersonal", "leadership",
	"leader", "personality", "behavior", "behaviour", "behavioral",
	"behavioural", "stakeholder", "stakeholders", "customer service",
	"empathy", "motivation", "culture fit", "negotiation", "sales",
	"management", "manager", "people", "soft skills", "emotional intelligence",
	"attitude", "integrity", "adaptability",
}

// KeywordClassifier sets intent flags by word and phrase membership.
type KeywordClassifier struct {
	technical []string
	softSkill []string
}

var _ Classifier = (*KeywordClassifier)(nil)

// NewKeywordClassifier creates a classifier over the default sets extended
// with the given extra keywords.
func NewKeywordClassifier(extraTechnical, extraSoftSkill []string) *KeywordClassifier {
	return &KeywordClassifier{
		technical: normalizeSet(DefaultTechnicalKeywords, extraTechnical),
		softSkill: normalizeSet(DefaultSoftSkillKeywords, extraSoftSkill),
	}
}

// Classify matches whole words and phrases against lowercased, punctuation
// normalized text.
func (c *KeywordClassifier) Classify(canonical string) query.Intent {
	padded := " " + normalize(canonical) + " "
	return query.Intent{
		NeedsTechnical: containsAny(padded, c.technical),
		NeedsSoftSkill: containsAny(padded, c.softSkill),
	}
}

func containsAny(padded string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func normalizeSet(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, kw := range list {
			n := normalize(kw)
			if n == "" {
				continue
			}
			if _, dup := seen[n]; dup {
				continue
			}
			seen[n] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// normalize lowercases, keeps letters, digits and the symbols used in
// technology names (+ # .), and strips sentence punctuation from word ends.
func normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			return unicode.ToLower(r)
		case r == '+', r == '#', r == '.':
			return r
		default:
			return ' '
		}
	}, s)

	words := strings.Fields(mapped)
	out := words[:0]
	for _, w := range words {
		w = strings.TrimRight(w, ".")
		if w != "" {
			out = append(out, w)
		}
	}
	return strings.Join(out, " ")
}
