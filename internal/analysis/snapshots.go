package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/schollz/progressbar/v3"

	"github.com/field-guardian/field-guardian-api/internal/collection"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

const (
	// historicalWindowDays is the trailing search window for diverse
	// observations.
	historicalWindowDays = 180

	// minDayGap keeps accepted observations at least this many days
	// apart.
	minDayGap = 5

	// candidateFactor bounds the scan to limit*candidateFactor scenes.
	candidateFactor = 5
)

// Observation is one accepted historical measurement, overlay included.
type Observation struct {
	AcquisitionDate time.Time `json:"acquisition_date"`
	MeanValue       float64   `json:"mean_value"`
	MinValue        float64   `json:"min_value"`
	MaxValue        float64   `json:"max_value"`
	OverlayRef      string    `json:"overlay_url"`
	AnalysisMessage string    `json:"analysis_message"`
}

// SelectDiverseObservations walks the trailing 180-day archive newest
// first and accepts up to limit observations, rejecting duplicate
// calendar dates and anything within minDayGap days of an accepted
// observation. Candidates whose overlay cannot be rendered are skipped
// without counting toward the limit. Exhausting the archive is not an
// error: the result may hold fewer than limit entries, possibly none.
func (s *Service) SelectDiverseObservations(ctx context.Context, geom orb.Geometry, t vi.Type, limit int) ([]Observation, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -historicalWindowDays)

	col, err := collection.Get(ctx, s.arc, geom, start, end)
	if err != nil {
		return nil, err
	}
	if col.Size() == 0 {
		fmt.Println("No cloud-free scenes found in the historical window")
		return nil, nil
	}

	maxAttempts := col.Size()
	if limit*candidateFactor < maxAttempts {
		maxAttempts = limit * candidateFactor
	}

	var observations []Observation
	usedDates := make(map[string]time.Time)
	bar := progressbar.Default(int64(maxAttempts), "Scanning scenes")

	for attempt := 0; attempt < maxAttempts && len(observations) < limit; attempt++ {
		bar.Add(1)

		// Newest first.
		idx := col.Size() - 1 - attempt
		scene := col.Scenes[idx]
		dateKey := scene.Time.Format("2006-01-02")

		if _, ok := usedDates[dateKey]; ok {
			continue
		}
		tooClose := false
		for _, accepted := range usedDates {
			gap := scene.Time.Sub(accepted)
			if gap < 0 {
				gap = -gap
			}
			if gap < minDayGap*24*time.Hour {
				tooClose = true
				break
			}
		}
		if tooClose {
			continue
		}

		img, err := col.Image(ctx, idx)
		if err != nil {
			fmt.Printf("Failed to fetch scene %s: %v\n", scene.ID, err)
			continue
		}
		raster, err := vi.Compute(img, t)
		if err != nil {
			fmt.Printf("Failed to compute %s for scene %s: %v\n", t, scene.ID, err)
			continue
		}

		rs := reduceRegion(raster, img, geom)
		if rs.count == 0 {
			continue
		}
		if t != vi.NDWI && rs.mean == 0 {
			continue
		}

		overlayRef, err := renderOverlay(raster, img, geom, t)
		if err != nil {
			if overlayRef, err = s.arc.ThumbnailURL(ctx, scene, col.Bounds, t); err != nil {
				fmt.Printf("Skipping %s, overlay could not be generated: %v\n", dateKey, err)
				continue
			}
		}

		observations = append(observations, Observation{
			AcquisitionDate: scene.Time,
			MeanValue:       rs.mean,
			MinValue:        rs.min,
			MaxValue:        rs.max,
			OverlayRef:      overlayRef,
			AnalysisMessage: vi.Classify(rs.mean, t),
		})
		usedDates[dateKey] = scene.Time
	}

	return observations, nil
}
