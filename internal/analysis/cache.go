package analysis

import (
	"time"

	"github.com/field-guardian/field-guardian-api/internal/storage"
)

// Analysis window presets accepted by the time-series endpoints.
const (
	AnalysisFullYear     = "full_year"
	AnalysisMonthlyRange = "monthly_range"
	AnalysisTenYearAvg   = "ten_year_avg"
)

// IsCacheComplete decides whether stored time-series points are enough to
// answer a request without touching the archive. The bar depends on the
// analysis preset:
//
//	full_year      at least 6 distinct months of the year covered
//	monthly_range  at least as many distinct months as the range spans
//	ten_year_avg   at least 5 distinct years covered
//	anything else  any stored point at all
//
// Distinctness for full_year is by month-of-year, so a January 2023 point
// and a January 2024 point count once.
func IsCacheComplete(points []storage.TimeSeriesPoint, analysisType string, start, end time.Time) bool {
	if len(points) == 0 {
		return false
	}

	switch analysisType {
	case AnalysisFullYear:
		return distinctMonths(points) >= 6

	case AnalysisMonthlyRange:
		expected := 1
		if !end.Before(start) {
			span := int(end.Month()) - int(start.Month()) + 1
			if span > expected {
				expected = span
			}
		}
		return distinctMonths(points) >= expected

	case AnalysisTenYearAvg:
		years := make(map[int]bool)
		for _, p := range points {
			years[p.MeasurementDate.Year()] = true
		}
		return len(years) >= 5

	default:
		return true
	}
}

func distinctMonths(points []storage.TimeSeriesPoint) int {
	months := make(map[time.Month]bool)
	for _, p := range points {
		months[p.MeasurementDate.Month()] = true
	}
	return len(months)
}
