// Package export serializes stored analysis data for download.
package export

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/field-guardian/field-guardian-api/internal/storage"
)

type timeSeriesRow struct {
	VIType          string  `csv:"vi_type"`
	MeasurementDate string  `csv:"measurement_date"`
	Value           float64 `csv:"vi_value"`
}

// WriteTimeSeriesCSV writes points as CSV with a header row. Dates are
// rendered as calendar days.
func WriteTimeSeriesCSV(w io.Writer, points []storage.TimeSeriesPoint) error {
	rows := make([]timeSeriesRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, timeSeriesRow{
			VIType:          p.VIType,
			MeasurementDate: p.MeasurementDate.Format("2006-01-02"),
			Value:           p.Value,
		})
	}

	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write time-series CSV: %v", err)
	}
	return nil
}
