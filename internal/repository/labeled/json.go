package labeled

import (
	"bytes"
	"fmt"
	"io"
	"slices"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/evaluation"
)

type jsonRecord struct {
	QueryID        string  `json:"query_id"`
	ID             string  `json:"id"`
	Query          string  `json:"query"`
	AssessmentURLs urlList `json:"assessment_urls"`
	Assessments    urlList `json:"assessments"`
	GroundTruth    urlList `json:"ground_truth"`
}

// urlList accepts a single string or a list of strings.
type urlList []string

func (u *urlList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*u = urlList{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*u = list
	return nil
}

// DecodeJSON reads a list of labeled records, or an object mapping query
// text to its ground truth URLs.
func DecodeJSON(r io.Reader) ([]evaluation.LabeledQuery, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read labeled queries: %w", err)
	}
	data = bytes.TrimSpace(data)
	g := newGrouper()

	if len(data) > 0 && data[0] == '{' {
		var m map[string]urlList
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: invalid labeled JSON: %w", domain.ErrEvaluationData, err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			g.add(k, k, m[k])
		}
		return g.result(), nil
	}

	var recs []jsonRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: invalid labeled JSON: %w", domain.ErrEvaluationData, err)
	}
	for i := range recs {
		rec := &recs[i]
		id := rec.QueryID
		if id == "" {
			id = rec.ID
		}
		if id == "" && rec.Query == "" {
			continue
		}
		urls := append(append(append([]string{}, rec.AssessmentURLs...), rec.Assessments...), rec.GroundTruth...)
		g.add(id, rec.Query, urls)
	}
	return g.result(), nil
}
