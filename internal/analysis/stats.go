package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/collection"
	"github.com/field-guardian/field-guardian-api/internal/faults"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

// statisticsWindowDays is the half-width of the scene search window
// around the requested date.
const statisticsWindowDays = 7

// Statistic is the single-date analysis output.
type Statistic struct {
	MeanValue       float64   `json:"mean_value"`
	MinValue        float64   `json:"min_value"`
	MaxValue        float64   `json:"max_value"`
	AnalysisMessage string    `json:"analysis_message"`
	MeasurementDate time.Time `json:"measurement_date"`
}

// Statistics reduces the most recent qualifying scene around date to
// mean/min/max over the field.
//
// A mean of exactly zero fails for every index except NDWI: the source
// data yields spurious all-zero reductions often enough that zero is
// treated as a failed computation rather than a true observation. Known
// heuristic; it will also reject a genuine zero (e.g. bare-soil NDVI).
func (s *Service) Statistics(ctx context.Context, geom orb.Geometry, t vi.Type, date time.Time) (*Statistic, error) {
	start := date.AddDate(0, 0, -statisticsWindowDays)
	end := date.AddDate(0, 0, statisticsWindowDays)

	col, err := collection.Get(ctx, s.arc, geom, start, end)
	if err != nil {
		return nil, err
	}
	if col.Size() == 0 {
		return nil, fmt.Errorf("%w: no scenes found around %s", faults.ErrDataUnavailable, date.Format("2006-01-02"))
	}

	// Scenes are ordered ascending; the last one is the most recent,
	// which also breaks same-day ties by latest acquisition timestamp.
	img, err := col.Image(ctx, col.Size()-1)
	if err != nil {
		return nil, err
	}

	raster, err := vi.Compute(img, t)
	if err != nil {
		return nil, err
	}

	rs := reduceRegion(raster, img, geom)
	if rs.count == 0 {
		return nil, fmt.Errorf("%w: reduction over field returned no pixels", faults.ErrDataUnavailable)
	}
	if t != vi.NDWI && rs.mean == 0 {
		return nil, fmt.Errorf("%w: zero mean detected for %s", faults.ErrDataUnavailable, t)
	}

	return &Statistic{
		MeanValue:       rs.mean,
		MinValue:        rs.min,
		MaxValue:        rs.max,
		AnalysisMessage: vi.Classify(rs.mean, t),
		MeasurementDate: date,
	}, nil
}
