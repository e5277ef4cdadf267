package labeled

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/kailas-cloud/recdex/internal/domain/recommendation"
)

// PredictionsHeader is the header row of a predictions file.
var PredictionsHeader = []string{"Query", "Assessment_URL"}

// WritePredictions writes rows as CSV with PredictionsHeader.
func WritePredictions(w io.Writer, rows []recommendation.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PredictionsHeader); err != nil {
		return fmt.Errorf("write predictions header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.Query, row.URL}); err != nil {
			return fmt.Errorf("write prediction: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush predictions: %w", err)
	}
	return nil
}
