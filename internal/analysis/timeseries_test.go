package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/field-guardian/field-guardian-api/internal/storage"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

func TestRemoteSeriesMonthlyBuckets(t *testing.T) {
	arc := &fakeArchive{scenes: []sceneFixture{
		scene("feb-a", time.Date(2024, 2, 5, 10, 0, 0, 0, time.UTC), healthyBands()),
		scene("feb-b", time.Date(2024, 2, 20, 10, 0, 0, 0, time.UTC), healthyBands()),
	}}
	svc := NewService(arc, &memStore{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	points, err := svc.RemoteSeries(context.Background(), unitSquare, vi.NDVI, start, end, AnalysisMonthlyRange)
	require.NoError(t, err)

	require.Len(t, points, 1)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.InDelta(t, 0.42857, points[0].Value, 1e-4)
}

func TestRemoteSeriesYearlyBuckets(t *testing.T) {
	arc := &fakeArchive{scenes: []sceneFixture{
		scene("y23", time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), healthyBands()),
		scene("y24", time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), healthyBands()),
	}}
	svc := NewService(arc, &memStore{})

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	points, err := svc.RemoteSeries(context.Background(), unitSquare, vi.NDVI, start, end, AnalysisTenYearAvg)
	require.NoError(t, err)

	require.Len(t, points, 2)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), points[1].Date)
}

func TestRemoteSeriesSkipsNonPositiveBuckets(t *testing.T) {
	water := map[string]float64{
		vi.BandGreen: 3000,
		vi.BandRed:   2000,
		vi.BandNIR:   1000,
		vi.BandQA:    0,
	}
	arc := &fakeArchive{scenes: []sceneFixture{
		scene("water", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), water),
		scene("crop", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), healthyBands()),
	}}
	svc := NewService(arc, &memStore{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	points, err := svc.RemoteSeries(context.Background(), unitSquare, vi.NDVI, start, end, AnalysisMonthlyRange)
	require.NoError(t, err)

	// February's negative NDVI bucket is dropped.
	require.Len(t, points, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), points[0].Date)
}

func TestRemoteSeriesIgnoresWidenedOutOfRangeScenes(t *testing.T) {
	// The only available scene predates the requested range, so the
	// widened 1-year search finds it but the aggregator must not emit a
	// point for it.
	arc := &fakeArchive{scenes: []sceneFixture{
		scene("autumn", time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC), healthyBands()),
	}}
	svc := NewService(arc, &memStore{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	points, err := svc.RemoteSeries(context.Background(), unitSquare, vi.NDVI, start, end, AnalysisMonthlyRange)
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestTimeSeriesDoesNotPersistOutOfRangePoints(t *testing.T) {
	fieldID := uuid.New()
	arc := &fakeArchive{scenes: []sceneFixture{
		scene("autumn", time.Date(2023, 11, 10, 0, 0, 0, 0, time.UTC), healthyBands()),
	}}
	store := &memStore{}
	svc := NewService(arc, store)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	result, err := svc.TimeSeries(context.Background(), fieldID, unitSquare, vi.NDVI, start, end, AnalysisMonthlyRange)
	require.NoError(t, err)

	assert.Equal(t, "remote", result.Source)
	assert.Zero(t, result.Count)
	assert.Empty(t, store.points)
}

func TestTimeSeriesServedFromDatabase(t *testing.T) {
	fieldID := uuid.New()
	store := &memStore{}
	for m := time.January; m <= time.March; m++ {
		store.points = append(store.points, storage.TimeSeriesPoint{
			FieldID:         fieldID,
			VIType:          string(vi.NDVI),
			MeasurementDate: time.Date(2024, m, 1, 0, 0, 0, 0, time.UTC),
			Value:           0.5,
		})
	}
	// Archive that fails if touched.
	arc := &fakeArchive{searchErr: assert.AnError}
	svc := NewService(arc, store)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	result, err := svc.TimeSeries(context.Background(), fieldID, unitSquare, vi.NDVI, start, end, AnalysisMonthlyRange)
	require.NoError(t, err)

	assert.Equal(t, "database", result.Source)
	assert.Equal(t, 3, result.Count)
}

func TestTimeSeriesFetchesAndPersistsOnCacheMiss(t *testing.T) {
	fieldID := uuid.New()
	arc := &fakeArchive{scenes: []sceneFixture{
		scene("feb", time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC), healthyBands()),
	}}
	store := &memStore{}
	svc := NewService(arc, store)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	result, err := svc.TimeSeries(context.Background(), fieldID, unitSquare, vi.NDVI, start, end, AnalysisMonthlyRange)
	require.NoError(t, err)

	assert.Equal(t, "remote", result.Source)
	require.Len(t, result.Points, 1)
	require.Len(t, store.points, 1)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), store.points[0].MeasurementDate)
	assert.Equal(t, string(vi.NDVI), store.points[0].VIType)
}

func TestTimeSeriesEmptyRemote(t *testing.T) {
	fieldID := uuid.New()
	svc := NewService(&fakeArchive{}, &memStore{})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	result, err := svc.TimeSeries(context.Background(), fieldID, unitSquare, vi.NDVI, start, end, AnalysisMonthlyRange)
	require.NoError(t, err)

	assert.Equal(t, "remote", result.Source)
	assert.Zero(t, result.Count)
	assert.NotEmpty(t, result.Message)
}
