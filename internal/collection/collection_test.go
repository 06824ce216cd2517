package collection

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/field-guardian/field-guardian-api/internal/archive"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

var square = orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

type stubArchive struct {
	scenes   []archive.SceneRef
	searches [][2]time.Time
	qa       float64
}

func (s *stubArchive) Search(ctx context.Context, bounds orb.Bound, start, end time.Time, maxCloudPct float64) ([]archive.SceneRef, error) {
	s.searches = append(s.searches, [2]time.Time{start, end})
	var refs []archive.SceneRef
	for _, ref := range s.scenes {
		if ref.Time.Before(start) || ref.Time.After(end) || ref.CloudPct > maxCloudPct {
			continue
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func (s *stubArchive) FetchImage(ctx context.Context, ref archive.SceneRef, bounds orb.Bound) (*vi.Image, error) {
	bands := map[string]vi.Raster{
		vi.BandRed: {{2000, 2000}},
		vi.BandNIR: {{5000, 5000}},
		vi.BandQA:  {{0, s.qa}},
	}
	return &vi.Image{
		ID:        ref.ID,
		Time:      ref.Time,
		Width:     2,
		Height:    1,
		Bands:     bands,
		Transform: [6]float64{0, 0.5, 0, 1, 0, -1},
	}, nil
}

func (s *stubArchive) ThumbnailURL(ctx context.Context, ref archive.SceneRef, bounds orb.Bound, t vi.Type) (string, error) {
	return "", nil
}

func TestGetFiltersCloudyScenes(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	arc := &stubArchive{scenes: []archive.SceneRef{
		{ID: "clear", Time: start.AddDate(0, 0, 5), CloudPct: 10},
		{ID: "cloudy", Time: start.AddDate(0, 0, 10), CloudPct: 80},
	}}

	col, err := Get(context.Background(), arc, square, start, end)
	require.NoError(t, err)
	require.Equal(t, 1, col.Size())
	assert.Equal(t, "clear", col.Scenes[0].ID)
}

func TestGetWidensEmptyWindow(t *testing.T) {
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	start := end.AddDate(0, 0, -14)
	arc := &stubArchive{scenes: []archive.SceneRef{
		{ID: "old", Time: end.AddDate(0, -6, 0), CloudPct: 5},
	}}

	col, err := Get(context.Background(), arc, square, start, end)
	require.NoError(t, err)

	require.Len(t, arc.searches, 2)
	assert.Equal(t, end.AddDate(0, 0, -365), arc.searches[1][0])
	assert.Equal(t, end, arc.searches[1][1])
	require.Equal(t, 1, col.Size())
	assert.Equal(t, "old", col.Scenes[0].ID)
}

func TestGetEmptyAfterWideningIsNotAnError(t *testing.T) {
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	arc := &stubArchive{}

	col, err := Get(context.Background(), arc, square, end.AddDate(0, 0, -14), end)
	require.NoError(t, err)
	assert.Zero(t, col.Size())
}

func TestImageMasksAndScales(t *testing.T) {
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	arc := &stubArchive{
		scenes: []archive.SceneRef{{ID: "s", Time: end.AddDate(0, 0, -1), CloudPct: 5}},
		qa:     1 << 10,
	}

	col, err := Get(context.Background(), arc, square, end.AddDate(0, 0, -14), end)
	require.NoError(t, err)

	img, err := col.Image(context.Background(), 0)
	require.NoError(t, err)

	// Clear pixel is scaled to reflectance.
	assert.InDelta(t, 0.5, img.Bands[vi.BandNIR][0][0], 1e-9)
	assert.InDelta(t, 0.2, img.Bands[vi.BandRed][0][0], 1e-9)

	// Cloud-flagged pixel is masked in every spectral band.
	assert.True(t, math.IsNaN(img.Bands[vi.BandNIR][0][1]))
	assert.True(t, math.IsNaN(img.Bands[vi.BandRed][0][1]))
}

func TestBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	arc := &stubArchive{scenes: []archive.SceneRef{
		{ID: "jan", Time: time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "jun", Time: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "dec", Time: time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC)},
	}}

	col, err := Get(context.Background(), arc, square, start, end)
	require.NoError(t, err)

	idx := col.Between(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	require.Len(t, idx, 1)
	assert.Equal(t, "jun", col.Scenes[idx[0]].ID)
}
