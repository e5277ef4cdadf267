package catalog

import (
	"strings"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	item, err := New(" java-8 ", "Java 8 (New)", "https://example.com/java-8/",
		"  Multi-choice test of Java knowledge. ", KnowledgeSkills,
		Attributes{Duration: "18 min", RemoteSupport: SupportYes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.ID() != "java-8" {
		t.Errorf("ID() = %q", item.ID())
	}
	if item.Description() != "Multi-choice test of Java knowledge." {
		t.Errorf("Description() = %q", item.Description())
	}
	if item.RemoteSupport() != SupportYes || item.AdaptiveSupport() != "" {
		t.Errorf("unexpected support flags: %q / %q", item.RemoteSupport(), item.AdaptiveSupport())
	}
	if item.Embedding() != nil {
		t.Error("Embedding() should be nil for a new item")
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		itemName string
		category Category
		wantErr  string
	}{
		{"empty id", " ", "n", KnowledgeSkills, "ID is required"},
		{"long id", strings.Repeat("x", MaxIDLength+1), "n", KnowledgeSkills, "too long"},
		{"empty name", "a", "", KnowledgeSkills, "name is required"},
		{"bad category", "a", "n", Category("Other"), "invalid category"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := New(tc.id, tc.itemName, "", "d", tc.category, Attributes{})
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestNew_BlankDescriptionAccepted(t *testing.T) {
	item, err := New("a", "n", "", "   ", PersonalityBehavior, Attributes{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Description() != "" {
		t.Errorf("expected trimmed empty description, got %q", item.Description())
	}
}

func TestWithEmbedding_Copies(t *testing.T) {
	item, _ := New("a", "n", "", "d", KnowledgeSkills, Attributes{})
	withVec := item.WithEmbedding([]float32{1, 2})

	if item.Embedding() != nil {
		t.Error("original item must not be mutated")
	}
	if len(withVec.Embedding()) != 2 || withVec.ID() != "a" {
		t.Errorf("unexpected copy: %v", withVec.Embedding())
	}
}

func TestDocumentText(t *testing.T) {
	item, _ := New("opq", "OPQ32r", "", "Occupational personality questionnaire",
		PersonalityBehavior, Attributes{Duration: "25 min"})
	want := "Name: OPQ32r | Category: Personality & Behavior | " +
		"Description: Occupational personality questionnaire | Duration: 25 min"
	if got := item.DocumentText(); got != want {
		t.Errorf("DocumentText() =\n%q\nwant\n%q", got, want)
	}

	bare, _ := New("x", "X", "", "", KnowledgeSkills, Attributes{})
	if got := bare.DocumentText(); got != "Name: X | Category: Knowledge & Skills" {
		t.Errorf("DocumentText() = %q", got)
	}
}

func TestParseCategory(t *testing.T) {
	tests := map[string]Category{
		"Personality & Behaviour":  PersonalityBehavior,
		"Behavioral":               PersonalityBehavior,
		"PERSONALITY":              PersonalityBehavior,
		"Knowledge & Skills":       KnowledgeSkills,
		"Ability & Aptitude":       KnowledgeSkills,
		"Simulations":              KnowledgeSkills,
		"":                         KnowledgeSkills,
		"Competencies, Behavior":   PersonalityBehavior,
		"Job-Specific Skills Test": KnowledgeSkills,
	}
	for raw, want := range tests {
		if got := ParseCategory(raw); got != want {
			t.Errorf("ParseCategory(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestParseSupport(t *testing.T) {
	tests := map[string]Support{
		"Yes": SupportYes, " y ": SupportYes, "TRUE": SupportYes,
		"No": SupportNo, "false": SupportNo, "0": SupportNo,
		"": SupportUnknown, "maybe": SupportUnknown,
	}
	for raw, want := range tests {
		if got := ParseSupport(raw); got != want {
			t.Errorf("ParseSupport(%q) = %q, want %q", raw, got, want)
		}
	}
}
