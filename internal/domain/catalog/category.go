package catalog

import "strings"

// Category is the coarse assessment category used for balancing.
type Category string

// Category constants.
const (
	KnowledgeSkills     Category = "Knowledge & Skills"
	PersonalityBehavior Category = "Personality & Behavior"
)

// Categories lists every category in a fixed order.
var Categories = []Category{KnowledgeSkills, PersonalityBehavior}

// IsValid checks if c is one of the supported categories.
func (c Category) IsValid() bool {
	return c == KnowledgeSkills || c == PersonalityBehavior
}

func (c Category) String() string { return string(c) }

// ParseCategory maps a free-form catalog label onto a coarse category.
// Labels mentioning personality or behaviour are behavioural, everything else
// (ability, knowledge, simulations, skills) counts as technical.
func ParseCategory(raw string) Category {
	l := strings.ToLower(raw)
	if strings.Contains(l, "personality") || strings.Contains(l, "behavio") {
		return PersonalityBehavior
	}
	return KnowledgeSkills
}

// Support is a tri-state capability flag.
type Support string

// Support values.
const (
	SupportUnknown Support = "unknown"
	SupportYes     Support = "yes"
	SupportNo      Support = "no"
)

// ParseSupport maps yes/no style labels; anything unrecognized is unknown.
func ParseSupport(raw string) Support {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "y", "true", "1":
		return SupportYes
	case "no", "n", "false", "0":
		return SupportNo
	default:
		return SupportUnknown
	}
}
