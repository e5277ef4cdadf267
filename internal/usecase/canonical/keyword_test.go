package canonical

import (
	"testing"

	"github.com/kailas-cloud/recdex/internal/domain/query"
)

func TestKeywordClassifier_Classify(t *testing.T) {
	c := NewKeywordClassifier(nil, nil)
	tests := []struct {
		text string
		want query.Intent
	}{
		{"Java developer who collaborates with business teams",
			query.Intent{NeedsTechnical: true, NeedsSoftSkill: true}},
		{"Python, SQL and JavaScript.", query.Intent{NeedsTechnical: true}},
		{"Looking for strong leadership and customer service", query.Intent{NeedsSoftSkill: true}},
		{"Job Title: Cashier", query.Intent{}},
		{"Required Skills: C++, C#", query.Intent{NeedsTechnical: true}},
		{"Experience with .NET", query.Intent{NeedsTechnical: true}},
		// Whole-word matching: "javanese" is not "java", "salesforce" is not "sales".
		{"javanese salesforce", query.Intent{}},
		{"Team Player wanted", query.Intent{NeedsSoftSkill: true}},
	}
	for _, tc := range tests {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %+v, want %+v", tc.text, got, tc.want)
		}
	}
}

func TestKeywordClassifier_ExtraKeywords(t *testing.T) {
	c := NewKeywordClassifier([]string{"Kubernetes"}, []string{"  Conflict   Resolution "})

	got := c.Classify("kubernetes admin skilled in conflict resolution")
	if !got.Mixed() {
		t.Errorf("expected mixed intent, got %+v", got)
	}

	base := NewKeywordClassifier(nil, nil)
	if base.Classify("kubernetes").NeedsTechnical {
		t.Error("extra keywords must not leak into other classifiers")
	}
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Hello,   World!": "hello world",
		"C++/C# & .NET.":  "c++ c# .net",
		"end.":            "end",
		"...":             "",
	}
	for in, want := range tests {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
