package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
)

// csvColumns maps accepted header spellings onto record fields.
var csvColumns = map[string]func(*record, string){
	"id":               func(r *record, v string) { r.ID = v },
	"name":             func(r *record, v string) { r.Name = v },
	"assessment_name":  func(r *record, v string) { r.Name = v },
	"url":              func(r *record, v string) { r.URL = v },
	"assessment_url":   func(r *record, v string) { r.URL = v },
	"description":      func(r *record, v string) { r.Description = v },
	"test_type":        func(r *record, v string) { r.TestType = v },
	"category":         func(r *record, v string) { r.Category = v },
	"duration":         func(r *record, v string) { r.Duration = v },
	"duration_minutes": func(r *record, v string) { r.DurationMinutes = v },
	"adaptive_support": func(r *record, v string) { r.AdaptiveSupport = v },
	"remote_support":   func(r *record, v string) { r.RemoteSupport = v },
}

// DecodeCSV reads a catalog with a header row. Unknown columns are ignored.
func DecodeCSV(r io.Reader) ([]catalog.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, domain.NewConfigurationError("", "catalog CSV is empty")
		}
		return nil, fmt.Errorf("read catalog header: %w", err)
	}

	setters := make([]func(*record, string), len(header))
	var hasName bool
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		setters[i] = csvColumns[key]
		if key == "name" || key == "assessment_name" {
			hasName = true
		}
	}
	if !hasName {
		return nil, domain.NewConfigurationError("", "catalog CSV has no name column")
	}

	var items []catalog.Item
	for pos := 1; ; pos++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read catalog row %d: %w", pos, err)
		}

		var rec record
		for i, v := range row {
			if i < len(setters) && setters[i] != nil {
				setters[i](&rec, strings.TrimSpace(v))
			}
		}
		it, err := rec.toItem(pos)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}
