// Package labeled reads labeled evaluation queries and writes prediction files.
package labeled

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/evaluation"
	"github.com/kailas-cloud/recdex/internal/domain/query"
)

// LoadFile reads labeled queries from a CSV or JSON file.
func LoadFile(ctx context.Context, path string) ([]evaluation.LabeledQuery, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("load labeled queries: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labeled queries: %w", err)
	}
	defer f.Close()

	out, err := Decode(f, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("load labeled queries %s: %w", path, err)
	}
	return out, nil
}

// Decode parses r according to ext (".json" or ".csv").
func Decode(r io.Reader, ext string) ([]evaluation.LabeledQuery, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return DecodeJSON(r)
	case ".csv":
		return DecodeCSV(r)
	default:
		return nil, fmt.Errorf("%w: unsupported labeled data format %q", domain.ErrEvaluationData, ext)
	}
}

// grouper collects ground truth per query in first-seen order.
type grouper struct {
	order []string
	byKey map[string]*evaluation.LabeledQuery
}

func newGrouper() *grouper {
	return &grouper{byKey: map[string]*evaluation.LabeledQuery{}}
}

// add merges urls into the query identified by id (or text when id is empty).
func (g *grouper) add(id, text string, urls []string) {
	key := id
	if key == "" {
		key = text
	}
	lq, ok := g.byKey[key]
	if !ok {
		lq = &evaluation.LabeledQuery{ID: key, Query: queryFrom(text, key)}
		g.byKey[key] = lq
		g.order = append(g.order, key)
	}
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			lq.GroundTruth = append(lq.GroundTruth, u)
		}
	}
}

func (g *grouper) result() []evaluation.LabeledQuery {
	out := make([]evaluation.LabeledQuery, 0, len(g.order))
	for _, k := range g.order {
		out = append(out, *g.byKey[k])
	}
	return out
}

// queryFrom builds the query for a labeled record; the ID doubles as text
// when the file carries no separate query text.
func queryFrom(text, id string) query.Query {
	if text == "" {
		text = id
	}
	return query.FromText(text)
}
