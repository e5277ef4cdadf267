package recommendation

import (
	"testing"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/domain/query"
)

func mustItem(t *testing.T, id string) catalog.Item {
	t.Helper()
	it, err := catalog.New(id, id, "https://example.com/"+id, "d", catalog.KnowledgeSkills, catalog.Attributes{})
	if err != nil {
		t.Fatalf("catalog.New: %v", err)
	}
	return it
}

func TestRelevanceFor(t *testing.T) {
	if RelevanceFor(0.8, 0.7) != HighlyRelevant {
		t.Error("score above threshold should be highly relevant")
	}
	if RelevanceFor(0.7, 0.7) != HighlyRelevant {
		t.Error("score at threshold should be highly relevant")
	}
	if RelevanceFor(-0.2, 0.7) != Relevant {
		t.Error("score below threshold should be relevant")
	}
}

func TestToRows(t *testing.T) {
	a, b, c := mustItem(t, "a"), mustItem(t, "b"), mustItem(t, "c")
	sets := []Set{
		{QueryID: "q1", Results: []Result{{Item: a, Rank: 1}, {Item: b, Rank: 2}}},
		{Query: query.Canonical{Text: "Job Title: Analyst"}, Results: []Result{{Item: c, Rank: 1}}},
		{QueryID: "empty"},
	}

	rows := ToRows(sets...)
	want := []Row{
		{"q1", "https://example.com/a"},
		{"q1", "https://example.com/b"},
		{"Job Title: Analyst", "https://example.com/c"},
	}
	if len(rows) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(rows))
	}
	for i := range want {
		if rows[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, rows[i], want[i])
		}
	}
}

func TestToRows_NoSets(t *testing.T) {
	if rows := ToRows(); len(rows) != 0 {
		t.Errorf("expected no rows, got %d", len(rows))
	}
}

func TestRerankAndItemIDs(t *testing.T) {
	results := []Result{{Item: mustItem(t, "x"), Rank: 7}, {Item: mustItem(t, "y"), Rank: 3}}
	Rerank(results)
	if results[0].Rank != 1 || results[1].Rank != 2 {
		t.Errorf("unexpected ranks: %d, %d", results[0].Rank, results[1].Rank)
	}

	s := Set{Results: results}
	ids := s.ItemIDs()
	if s.Len() != 2 || ids[0] != "x" || ids[1] != "y" {
		t.Errorf("unexpected ids: %v", ids)
	}
}
