package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/collection"
	"github.com/field-guardian/field-guardian-api/internal/storage"
	"github.com/field-guardian/field-guardian-api/internal/utils"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

// SeriesPoint is one aggregated time-series value, dated on the first day
// of its month or year bucket.
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// SeriesResult is the time-series response with its provenance.
type SeriesResult struct {
	Points  []SeriesPoint `json:"points"`
	Source  string        `json:"source"`
	Count   int           `json:"count"`
	Message string        `json:"message,omitempty"`
}

// TimeSeries answers a time-series request from storage when the stored
// points satisfy the analysis preset, otherwise from the archive. Freshly
// computed points are persisted before returning; duplicate inserts are
// ignored so a retried request never double-writes.
func (s *Service) TimeSeries(ctx context.Context, fieldID uuid.UUID, geom orb.Geometry, t vi.Type, start, end time.Time, analysisType string) (*SeriesResult, error) {
	stored, err := s.store.ListPoints(ctx, fieldID, string(t), start, end)
	if err != nil {
		return nil, err
	}

	if IsCacheComplete(stored, analysisType, start, end) {
		points := make([]SeriesPoint, 0, len(stored))
		for _, p := range stored {
			points = append(points, SeriesPoint{Date: p.MeasurementDate, Value: p.Value})
		}
		return &SeriesResult{Points: points, Source: "database", Count: len(points)}, nil
	}

	fmt.Printf("Cache incomplete for field %s %s (%s), computing from archive\n", fieldID, t, analysisType)

	points, err := s.RemoteSeries(ctx, geom, t, start, end, analysisType)
	if err != nil {
		return nil, err
	}

	for _, p := range points {
		_, err := s.store.InsertPoint(ctx, storage.TimeSeriesPoint{
			FieldID:         fieldID,
			VIType:          string(t),
			MeasurementDate: p.Date,
			Value:           p.Value,
		})
		if err != nil {
			fmt.Printf("Failed to persist time-series point %s: %v\n", p.Date.Format("2006-01-02"), err)
		}
	}

	result := &SeriesResult{Points: points, Source: "remote", Count: len(points)}
	if len(points) == 0 {
		result.Message = "No satellite data available for the requested period"
	}
	return result, nil
}

// RemoteSeries computes aggregated series values straight from the
// archive. Scenes are grouped into yearly buckets for ten_year_avg and
// monthly buckets otherwise; each bucket value is the region mean of the
// per-scene mean rasters. Buckets that reduce to no pixels or to a
// non-positive mean are dropped.
func (s *Service) RemoteSeries(ctx context.Context, geom orb.Geometry, t vi.Type, start, end time.Time, analysisType string) ([]SeriesPoint, error) {
	col, err := collection.Get(ctx, s.arc, geom, start, end)
	if err != nil {
		return nil, err
	}
	if col.Size() == 0 {
		return nil, nil
	}

	yearly := analysisType == AnalysisTenYearAvg

	// The widened-window fallback can hand back scenes from before the
	// requested range; only scenes inside [start, end] are aggregated.
	inRange := col.Between(start, end)
	if len(inRange) == 0 {
		return nil, nil
	}

	// Group scenes into calendar buckets, then aggregate each bucket in
	// chronological order.
	buckets := make(map[time.Time][]int)
	for _, i := range inRange {
		b := bucketFloor(col.Scenes[i].Time, yearly)
		buckets[b] = append(buckets[b], i)
	}

	var points []SeriesPoint
	for _, bucketStart := range utils.GetSortedKeys(buckets, true) {
		var rasters []vi.Raster
		var img *vi.Image
		for _, i := range buckets[bucketStart] {
			fetched, err := col.Image(ctx, i)
			if err != nil {
				fmt.Printf("Skipping scene %s: %v\n", col.Scenes[i].ID, err)
				continue
			}
			raster, err := vi.Compute(fetched, t)
			if err != nil {
				fmt.Printf("Skipping scene %s: %v\n", col.Scenes[i].ID, err)
				continue
			}
			rasters = append(rasters, raster)
			img = fetched
		}
		if len(rasters) == 0 {
			continue
		}

		mean := vi.MeanRaster(rasters, img.Width, img.Height)
		rs := reduceRegion(mean, img, geom)
		if rs.count == 0 || rs.mean <= 0 {
			continue
		}

		points = append(points, SeriesPoint{Date: bucketStart, Value: rs.mean})
	}

	return points, nil
}

func bucketFloor(d time.Time, yearly bool) time.Time {
	if yearly {
		return time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
}
