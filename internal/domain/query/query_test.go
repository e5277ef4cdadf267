package query

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		q       Query
		wantErr string
	}{
		{"text", FromText("Java developer"), ""},
		{"fields", FromFields(Fields{JobTitle: "Analyst"}), ""},
		{"skills only", FromFields(Fields{Skills: []string{"SQL"}}), ""},
		{"empty", FromText("  "), "empty"},
		{"blank skills", FromFields(Fields{Skills: []string{" ", ""}}), "empty"},
		{"mixed", New("text", Fields{JobTitle: "Analyst"}), "not both"},
		{"too long", FromText(strings.Repeat("a", MaxLength+1)), "too long"},
		{"fields too long", FromFields(Fields{Context: strings.Repeat("a", MaxLength), JobTitle: "x"}), "too long"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.q.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestFromFields_CopiesSkills(t *testing.T) {
	skills := []string{"Java", "SQL"}
	q := FromFields(Fields{Skills: skills})
	skills[0] = "mutated"

	if got := q.Fields().Skills[0]; got != "Java" {
		t.Errorf("expected query to own its skills, got %q", got)
	}

	f := q.Fields()
	f.Skills[1] = "mutated"
	if got := q.Fields().Skills[1]; got != "SQL" {
		t.Errorf("Fields() must return a copy, got %q", got)
	}
}

func TestShape(t *testing.T) {
	if FromText("x").IsStructured() {
		t.Error("free text query reported as structured")
	}
	if !FromFields(Fields{ExperienceLevel: "Mid"}).IsStructured() {
		t.Error("structured query not reported as structured")
	}
	if !FromText("").IsEmpty() {
		t.Error("empty text query not reported as empty")
	}
}

func TestIntentMixed(t *testing.T) {
	if (Intent{NeedsTechnical: true}).Mixed() {
		t.Error("single need reported as mixed")
	}
	if !(Intent{NeedsTechnical: true, NeedsSoftSkill: true}).Mixed() {
		t.Error("both needs not reported as mixed")
	}
}
