package catalog

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/kailas-cloud/recdex/internal/domain"
	"github.com/kailas-cloud/recdex/internal/domain/catalog"
)

type jsonRecord struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	URL             string   `json:"url"`
	Description     string   `json:"description"`
	TestType        string   `json:"test_type"`
	Category        string   `json:"category"`
	Duration        flexText `json:"duration"`
	DurationMinutes flexText `json:"duration_minutes"`
	AdaptiveSupport flexText `json:"adaptive_support"`
	RemoteSupport   flexText `json:"remote_support"`
}

// flexText accepts strings, numbers and booleans.
type flexText string

func (f *flexText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexText(s)
	case bytes.Equal(data, []byte("true")):
		*f = "yes"
	case bytes.Equal(data, []byte("false")):
		*f = "no"
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("unsupported value %s", data)
		}
		*f = flexText(data)
	}
	return nil
}

// DecodeJSON reads either a top-level array of records or an object with an
// "assessments" array.
func DecodeJSON(r io.Reader) ([]catalog.Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	data = bytes.TrimSpace(data)

	var recs []jsonRecord
	if len(data) > 0 && data[0] == '{' {
		var wrapped struct {
			Assessments []jsonRecord `json:"assessments"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, domain.NewConfigurationError("", "invalid catalog JSON: "+err.Error())
		}
		recs = wrapped.Assessments
	} else if err := json.Unmarshal(data, &recs); err != nil {
		return nil, domain.NewConfigurationError("", "invalid catalog JSON: "+err.Error())
	}

	items := make([]catalog.Item, 0, len(recs))
	for i := range recs {
		jr := &recs[i]
		rec := record{
			ID:              jr.ID,
			Name:            jr.Name,
			URL:             jr.URL,
			Description:     jr.Description,
			TestType:        jr.TestType,
			Category:        jr.Category,
			Duration:        string(jr.Duration),
			DurationMinutes: string(jr.DurationMinutes),
			AdaptiveSupport: string(jr.AdaptiveSupport),
			RemoteSupport:   string(jr.RemoteSupport),
		}
		it, err := rec.toItem(i + 1)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

// durationText prefers a free-form duration and renders bare minutes.
func durationText(duration, minutes string) string {
	if duration != "" {
		if _, err := strconv.ParseFloat(duration, 64); err == nil {
			return duration + " minutes"
		}
		return duration
	}
	if minutes != "" {
		return minutes + " minutes"
	}
	return ""
}
