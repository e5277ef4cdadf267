package labeled

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/evaluation"
)

var (
	idColumns   = []string{"query_id", "id"}
	textColumns = []string{"query", "job_description", "text"}
	// One URL per row; rows of the same query are grouped.
	urlColumns = []string{"assessment_url", "url"}
	// Several URLs per row, comma separated or as a JSON list.
	urlListColumns = []string{"assessment_urls", "assessments", "ground_truth"}
)

// DecodeCSV reads labeled queries with a header row. Rows sharing a query are
// merged in first-seen order.
func DecodeCSV(r io.Reader) ([]evaluation.LabeledQuery, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []evaluation.LabeledQuery{}, nil
		}
		return nil, fmt.Errorf("read labeled header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}

	idCol, textCol := find(cols, idColumns), find(cols, textColumns)
	urlCol, listCol := find(cols, urlColumns), find(cols, urlListColumns)
	if idCol < 0 && textCol < 0 {
		return nil, fmt.Errorf("%w: labeled CSV needs a query or query_id column", domain.ErrEvaluationData)
	}
	if urlCol < 0 && listCol < 0 {
		return nil, fmt.Errorf("%w: labeled CSV needs an assessment URL column", domain.ErrEvaluationData)
	}

	g := newGrouper()
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read labeled row %d: %w", line, err)
		}

		id, text := cell(row, idCol), cell(row, textCol)
		if id == "" && text == "" {
			continue
		}
		var urls []string
		if u := cell(row, urlCol); u != "" {
			urls = append(urls, u)
		}
		if l := cell(row, listCol); l != "" {
			parsed, err := splitURLs(l)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: %w", domain.ErrEvaluationData, line, err)
			}
			urls = append(urls, parsed...)
		}
		g.add(id, text, urls)
	}
	return g.result(), nil
}

// splitURLs accepts a JSON list or a comma separated string.
func splitURLs(s string) ([]string, error) {
	if strings.HasPrefix(s, "[") {
		var out []string
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return nil, fmt.Errorf("invalid URL list: %w", err)
		}
		return out, nil
	}
	return strings.Split(s, ","), nil
}

func find(cols map[string]int, names []string) int {
	for _, n := range names {
		if i, ok := cols[n]; ok {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
