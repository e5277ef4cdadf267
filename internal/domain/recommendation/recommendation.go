package recommendation

import (
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	"github.com/kailas-cloud/recdex/internal/domain/query"
)

// Relevance is a display label derived from the similarity threshold.
type Relevance string

// Relevance labels.
const (
	HighlyRelevant Relevance = "highly_relevant"
	Relevant       Relevance = "relevant"
)

// RelevanceFor labels a score against the threshold. It never filters.
func RelevanceFor(score, threshold float64) Relevance {
	if score >= threshold {
		return HighlyRelevant
	}
	return Relevant
}

// Result is one ranked item.
type Result struct {
	Item        catalog.Item
	Score       float64
	Rank        int
	Relevance   Relevance
	Explanation string
}

// Set is the final, presentation-ordered answer for one query.
type Set struct {
	QueryID  string
	Query    query.Canonical
	Results  []Result
	Balanced bool
	Degraded bool
}

// Len returns the number of results.
func (s *Set) Len() int { return len(s.Results) }

// ItemIDs returns item IDs in rank order.
func (s *Set) ItemIDs() []string {
	ids := make([]string, len(s.Results))
	for i := range s.Results {
		ids[i] = s.Results[i].Item.ID()
	}
	return ids
}

// Rerank assigns ranks 1..n in slice order.
func Rerank(results []Result) {
	for i := range results {
		results[i].Rank = i + 1
	}
}

// Row is one (query, item URL) pair of the tabular export.
type Row struct {
	Query string
	URL   string
}

// ToRows flattens sets into one row per recommended item, in rank order.
// The query column is the set's QueryID, or its canonical text when unset.
func ToRows(sets ...Set) []Row {
	n := 0
	for i := range sets {
		n += len(sets[i].Results)
	}
	rows := make([]Row, 0, n)
	for i := range sets {
		label := sets[i].QueryID
		if label == "" {
			label = sets[i].Query.Text
		}
		for j := range sets[i].Results {
			rows = append(rows, Row{Query: label, URL: sets[i].Results[j].Item.URL()})
		}
	}
	return rows
}
