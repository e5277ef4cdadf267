package evaluation

import (
	"fmt"

	"github.com/kailas-cloud/recdex/internal/domain"
)

// RecallAtK is |top-k(predicted) ∩ groundTruth| / |groundTruth|.
// Both inputs are item IDs; duplicates count once.
func RecallAtK(predicted, groundTruth []string, k int) (float64, error) {
	if k <= 0 {
		return 0, fmt.Errorf("k must be positive, got %d", k)
	}
	truth := make(map[string]struct{}, len(groundTruth))
	for _, id := range groundTruth {
		truth[id] = struct{}{}
	}
	if len(truth) == 0 {
		return 0, fmt.Errorf("%w: empty ground truth", domain.ErrEvaluationData)
	}

	hits := 0
	seen := make(map[string]struct{}, k)
	for _, id := range predicted[:min(k, len(predicted))] {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if _, ok := truth[id]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(truth)), nil
}
