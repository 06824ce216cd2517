package analysis

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/archive"
	"github.com/field-guardian/field-guardian-api/internal/storage"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

// unitSquare covers lon/lat [0,1]x[0,1]; every pixel center of the fake
// 4x4 scenes falls inside it.
var unitSquare = orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

const fakeSize = 4

// sceneFixture describes one synthetic scene with uniform raw digital
// numbers per band. 5000 raw becomes 0.5 reflectance after scaling.
type sceneFixture struct {
	ref   archive.SceneRef
	bands map[string]float64
}

func scene(id string, acquired time.Time, bands map[string]float64) sceneFixture {
	return sceneFixture{
		ref:   archive.SceneRef{ID: id, Time: acquired, CloudPct: 5},
		bands: bands,
	}
}

func healthyBands() map[string]float64 {
	return map[string]float64{
		vi.BandBlue:  500,
		vi.BandGreen: 1000,
		vi.BandRed:   2000,
		vi.BandNIR:   5000,
		vi.BandQA:    0,
	}
}

// fakeArchive serves fixtures instead of the satellite service. FetchImage
// builds a fresh image per call since the pipeline mutates rasters while
// masking and scaling.
type fakeArchive struct {
	scenes    []sceneFixture
	fetchErr  map[string]error
	thumbURL  string
	thumbErr  error
	searchErr error
}

func (f *fakeArchive) Search(ctx context.Context, bounds orb.Bound, start, end time.Time, maxCloudPct float64) ([]archive.SceneRef, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	var refs []archive.SceneRef
	for _, s := range f.scenes {
		if s.ref.Time.Before(start) || s.ref.Time.After(end) {
			continue
		}
		if s.ref.CloudPct > maxCloudPct {
			continue
		}
		refs = append(refs, s.ref)
	}
	return refs, nil
}

func (f *fakeArchive) FetchImage(ctx context.Context, ref archive.SceneRef, bounds orb.Bound) (*vi.Image, error) {
	if err := f.fetchErr[ref.ID]; err != nil {
		return nil, err
	}
	for _, s := range f.scenes {
		if s.ref.ID != ref.ID {
			continue
		}
		bands := make(map[string]vi.Raster, len(s.bands))
		for name, v := range s.bands {
			r := vi.NewRaster(fakeSize, fakeSize)
			for y := 0; y < fakeSize; y++ {
				for x := 0; x < fakeSize; x++ {
					r[y][x] = v
				}
			}
			bands[name] = r
		}
		return &vi.Image{
			ID:        s.ref.ID,
			Time:      s.ref.Time,
			CloudPct:  s.ref.CloudPct,
			Width:     fakeSize,
			Height:    fakeSize,
			Bands:     bands,
			Transform: [6]float64{0, 0.25, 0, 1, 0, -0.25},
		}, nil
	}
	return nil, fmt.Errorf("unknown scene %s", ref.ID)
}

func (f *fakeArchive) ThumbnailURL(ctx context.Context, ref archive.SceneRef, bounds orb.Bound, t vi.Type) (string, error) {
	if f.thumbErr != nil {
		return "", f.thumbErr
	}
	if f.thumbURL != "" {
		return f.thumbURL, nil
	}
	return "https://thumbnails.example/" + ref.ID, nil
}

// memStore is an in-memory storage.Store for service tests.
type memStore struct {
	points    []storage.TimeSeriesPoint
	snapshots []storage.Snapshot
	insertErr error
}

func (m *memStore) ListPoints(ctx context.Context, fieldID uuid.UUID, viType string, start, end time.Time) ([]storage.TimeSeriesPoint, error) {
	var out []storage.TimeSeriesPoint
	for _, p := range m.points {
		if p.FieldID != fieldID || p.VIType != viType {
			continue
		}
		if p.MeasurementDate.Before(start) || p.MeasurementDate.After(end) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MeasurementDate.Before(out[j].MeasurementDate) })
	return out, nil
}

func (m *memStore) InsertPoint(ctx context.Context, p storage.TimeSeriesPoint) (bool, error) {
	if m.insertErr != nil {
		return false, m.insertErr
	}
	for _, existing := range m.points {
		if existing.FieldID == p.FieldID && existing.VIType == p.VIType && existing.MeasurementDate.Equal(p.MeasurementDate) {
			return false, nil
		}
	}
	m.points = append(m.points, p)
	return true, nil
}

func (m *memStore) InsertSnapshot(ctx context.Context, s *storage.Snapshot) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.snapshots = append(m.snapshots, *s)
	return nil
}

func (m *memStore) HasSnapshotOn(ctx context.Context, fieldID uuid.UUID, viType string, day time.Time) (bool, error) {
	for _, s := range m.snapshots {
		if s.FieldID == fieldID && s.VIType == viType &&
			s.SnapshotDate.UTC().Format("2006-01-02") == day.UTC().Format("2006-01-02") {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListSnapshots(ctx context.Context, fieldID uuid.UUID, viType string, limit int) ([]storage.Snapshot, error) {
	var out []storage.Snapshot
	for _, s := range m.snapshots {
		if s.FieldID != fieldID {
			continue
		}
		if viType != "" && s.VIType != viType {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SnapshotDate.After(out[j].SnapshotDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) LatestSnapshot(ctx context.Context, fieldID uuid.UUID, viType string) (*storage.Snapshot, error) {
	snaps, err := m.ListSnapshots(ctx, fieldID, viType, 1)
	if err != nil || len(snaps) == 0 {
		return nil, err
	}
	return &snaps[0], nil
}

func (m *memStore) DeleteSnapshots(ctx context.Context, fieldID uuid.UUID, viType string) (int64, error) {
	var kept []storage.Snapshot
	var deleted int64
	for _, s := range m.snapshots {
		if s.FieldID == fieldID && (viType == "" || s.VIType == viType) {
			deleted++
			continue
		}
		kept = append(kept, s)
	}
	m.snapshots = kept
	return deleted, nil
}
