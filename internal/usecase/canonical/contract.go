package canonical

import "github.com/kailas-cloud/recdex/internal/domain/query"

// Classifier derives an intent signal from a canonical query string.
type Classifier interface {
	Classify(canonical string) query.Intent
}
