package recdex

import (
	"fmt"

	"github.com/kailas-cloud/recdex/internal/domain/catalog"
	domeval "github.com/kailas-cloud/recdex/internal/domain/evaluation"
	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
)

// Category is the coarse assessment category used for balancing.
type Category string

// Categories.
const (
	KnowledgeSkills     Category = Category(catalog.KnowledgeSkills)
	PersonalityBehavior Category = Category(catalog.PersonalityBehavior)
)

// Item is one catalog assessment.
type Item struct {
	ID          string
	Name        string
	URL         string
	Description string
	// Category accepts free-form labels; anything mentioning personality or
	// behaviour is PersonalityBehavior, everything else KnowledgeSkills.
	Category        Category
	Duration        string
	AdaptiveSupport string // "yes", "no" or "unknown"
	RemoteSupport   string
}

// Query is either free text or a structured hiring need, never both.
type Query struct {
	Text            string
	JobTitle        string
	Skills          []string
	ExperienceLevel string
	Context         string
}

// Recommendation is one ranked item.
type Recommendation struct {
	Item        Item
	Score       float64
	Rank        int
	Relevance   string
	Explanation string
}

// RecommendationSet is the presentation-ordered answer for one query.
type RecommendationSet struct {
	QueryID string
	// Query is the canonical query text.
	Query          string
	NeedsTechnical bool
	NeedsSoftSkill bool
	Balanced       bool
	Degraded       bool
	Items          []Recommendation
}

// URLs returns item URLs in rank order.
func (s *RecommendationSet) URLs() []string {
	out := make([]string, len(s.Items))
	for i := range s.Items {
		out[i] = s.Items[i].Item.URL
	}
	return out
}

// LabeledQuery is a free-text query with its relevant item IDs or URLs.
type LabeledQuery struct {
	ID          string
	Query       string
	GroundTruth []string
}

// Stats aggregates Recall@K across evaluated queries.
type Stats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Skip explains why a labeled query was not evaluated.
type Skip struct {
	QueryID string
	Reason  string
}

// Record is the outcome for one evaluated query.
type Record struct {
	QueryID     string
	GroundTruth []string
	Predicted   RecommendationSet
	RecallAtK   map[int]float64
}

// Report is the result of Evaluate.
type Report struct {
	RunID     string
	KValues   []int
	Evaluated int
	Skipped   []Skip
	PerK      map[int]Stats
	Records   []Record
}

// Row is one (query, item URL) pair of a predictions export.
type Row struct {
	Query string
	URL   string
}

// CatalogStats describes the served catalog.
type CatalogStats struct {
	Total       int
	PerCategory map[Category]int
	Dimensions  int
}

// RebuildResult summarizes a catalog rebuild.
type RebuildResult struct {
	Items       int
	Dimensions  int
	TotalTokens int
}

// --- converters ---

func itemToDomain(it Item) (catalog.Item, error) {
	out, err := catalog.New(it.ID, it.Name, it.URL, it.Description,
		catalog.ParseCategory(string(it.Category)), catalog.Attributes{
			Duration:        it.Duration,
			AdaptiveSupport: catalog.ParseSupport(it.AdaptiveSupport),
			RemoteSupport:   catalog.ParseSupport(it.RemoteSupport),
		})
	if err != nil {
		return catalog.Item{}, fmt.Errorf("convert item: %w", err)
	}
	return out, nil
}

func itemFromDomain(it *catalog.Item) Item {
	return Item{
		ID:              it.ID(),
		Name:            it.Name(),
		URL:             it.URL(),
		Description:     it.Description(),
		Category:        Category(it.Category()),
		Duration:        it.Duration(),
		AdaptiveSupport: string(it.AdaptiveSupport()),
		RemoteSupport:   string(it.RemoteSupport()),
	}
}

func (q Query) toDomain() query.Query {
	return query.New(q.Text, query.Fields{
		JobTitle:        q.JobTitle,
		Skills:          q.Skills,
		ExperienceLevel: q.ExperienceLevel,
		Context:         q.Context,
	})
}

func setFromDomain(s *recommendation.Set) RecommendationSet {
	out := RecommendationSet{
		QueryID:        s.QueryID,
		Query:          s.Query.Text,
		NeedsTechnical: s.Query.Intent.NeedsTechnical,
		NeedsSoftSkill: s.Query.Intent.NeedsSoftSkill,
		Balanced:       s.Balanced,
		Degraded:       s.Degraded,
		Items:          make([]Recommendation, len(s.Results)),
	}
	for i := range s.Results {
		r := &s.Results[i]
		out.Items[i] = Recommendation{
			Item:        itemFromDomain(&r.Item),
			Score:       r.Score,
			Rank:        r.Rank,
			Relevance:   string(r.Relevance),
			Explanation: r.Explanation,
		}
	}
	return out
}

func labeledToDomain(in []LabeledQuery) []domeval.LabeledQuery {
	out := make([]domeval.LabeledQuery, len(in))
	for i, lq := range in {
		out[i] = domeval.LabeledQuery{
			ID:          lq.ID,
			Query:       query.FromText(lq.Query),
			GroundTruth: append([]string(nil), lq.GroundTruth...),
		}
	}
	return out
}

func reportFromDomain(r *domeval.Report) Report {
	out := Report{
		RunID:     r.RunID,
		KValues:   append([]int(nil), r.KValues...),
		Evaluated: r.Evaluated,
		Skipped:   make([]Skip, len(r.Skipped)),
		PerK:      make(map[int]Stats, len(r.PerK)),
		Records:   make([]Record, len(r.Records)),
	}
	for i, s := range r.Skipped {
		out.Skipped[i] = Skip{QueryID: s.QueryID, Reason: s.Reason}
	}
	for k, s := range r.PerK {
		out.PerK[k] = Stats{Mean: s.Mean, Std: s.Std, Min: s.Min, Max: s.Max}
	}
	for i := range r.Records {
		rec := &r.Records[i]
		out.Records[i] = Record{
			QueryID:     rec.QueryID,
			GroundTruth: rec.GroundTruth,
			Predicted:   setFromDomain(&rec.Predicted),
			RecallAtK:   rec.RecallAtK,
		}
	}
	return out
}

// ToRows flattens sets into one row per recommended item, in rank order.
// The query column is the set's QueryID, or its canonical query when unset.
func ToRows(sets ...RecommendationSet) []Row {
	var rows []Row
	for i := range sets {
		label := sets[i].QueryID
		if label == "" {
			label = sets[i].Query
		}
		for _, url := range sets[i].URLs() {
			rows = append(rows, Row{Query: label, URL: url})
		}
	}
	return rows
}
