package evaluation

import (
	"math"

	"github.com/kailas-cloud/recdex/internal/domain/query"
	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
)

// LabeledQuery is a query with its externally labeled relevant items.
// GroundTruth entries are item IDs or item URLs.
type LabeledQuery struct {
	ID          string
	Query       query.Query
	GroundTruth []string
}

// Record is the outcome for one evaluated query.
type Record struct {
	QueryID     string
	GroundTruth []string
	Predicted   recommendation.Set
	RecallAtK   map[int]float64
}

// Skip explains why a labeled query was excluded from aggregation.
type Skip struct {
	QueryID string
	Reason  string
}

// Stats aggregates one metric across records.
type Stats struct {
	Mean float64
	Std  float64
	Min  float64
	Max  float64
}

// Report is the result of a batch evaluation.
type Report struct {
	RunID     string
	KValues   []int
	Evaluated int
	Skipped   []Skip
	PerK      map[int]Stats
	Records   []Record
}

// MeanRecall returns the mean recall at k, false if k was not evaluated.
func (r *Report) MeanRecall(k int) (float64, bool) {
	s, ok := r.PerK[k]
	return s.Mean, ok
}

// Summarize computes mean, population standard deviation, min and max.
// Values are summed in slice order so identical input yields identical output.
func Summarize(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sum := 0.0
	lo, hi := values[0], values[0]
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	mean := sum / float64(len(values))

	sq := 0.0
	for _, v := range values {
		d := v - mean
		sq += d * d
	}

	return Stats{
		Mean: mean,
		Std:  math.Sqrt(sq / float64(len(values))),
		Min:  lo,
		Max:  hi,
	}
}
