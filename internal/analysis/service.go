// Package analysis is the vegetation-index pipeline: single-date
// statistics and overlays, diverse historical snapshots, cached time
// series and monthly/yearly aggregation.
package analysis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/field-guardian/field-guardian-api/internal/archive"
	"github.com/field-guardian/field-guardian-api/internal/storage"
	"github.com/field-guardian/field-guardian-api/internal/vi"
)

// bulkWorkers bounds how many indices a bulk request analyzes at once.
const bulkWorkers = 3

// Service runs analysis requests against the scene archive and hands
// results to the persistence collaborator. Stateless across requests;
// safe for concurrent use.
type Service struct {
	arc   archive.Archive
	store storage.Store
}

func NewService(arc archive.Archive, store storage.Store) *Service {
	return &Service{arc: arc, store: store}
}

// Analyze computes statistics and an overlay for a field at a date and
// persists the snapshot. Statistics failures are fatal; overlay failures
// degrade to an empty overlay reference.
func (s *Service) Analyze(ctx context.Context, fieldID uuid.UUID, geom orb.Geometry, t vi.Type, date time.Time) (*storage.Snapshot, error) {
	stats, err := s.Statistics(ctx, geom, t, date)
	if err != nil {
		return nil, err
	}

	overlayRef, err := s.Overlay(ctx, geom, t, date)
	if err != nil {
		fmt.Printf("Overlay generation failed for field %s %s: %v\n", fieldID, t, err)
		overlayRef = ""
	}

	snap := &storage.Snapshot{
		FieldID:      fieldID,
		VIType:       string(t),
		SnapshotDate: date,
		MeanValue:    stats.MeanValue,
		MinValue:     stats.MinValue,
		MaxValue:     stats.MaxValue,
		OverlayRef:   overlayRef,
		Message:      stats.AnalysisMessage,
	}
	if err := s.store.InsertSnapshot(ctx, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

// AnalyzeHistorical generates up to limit snapshots from temporally
// diverse past scenes, skipping days that already hold a snapshot.
func (s *Service) AnalyzeHistorical(ctx context.Context, fieldID uuid.UUID, geom orb.Geometry, t vi.Type, limit int, clearOld bool) ([]storage.Snapshot, error) {
	if clearOld {
		deleted, err := s.store.DeleteSnapshots(ctx, fieldID, string(t))
		if err != nil {
			return nil, err
		}
		if deleted > 0 {
			fmt.Printf("Cleared %d old %s snapshots for field %s\n", deleted, t, fieldID)
		}
	}

	observations, err := s.SelectDiverseObservations(ctx, geom, t, limit)
	if err != nil {
		return nil, err
	}

	var created []storage.Snapshot
	for _, obs := range observations {
		exists, err := s.store.HasSnapshotOn(ctx, fieldID, string(t), obs.AcquisitionDate)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		snap := storage.Snapshot{
			FieldID:      fieldID,
			VIType:       string(t),
			SnapshotDate: obs.AcquisitionDate,
			MeanValue:    obs.MeanValue,
			MinValue:     obs.MinValue,
			MaxValue:     obs.MaxValue,
			OverlayRef:   obs.OverlayRef,
			Message:      obs.AnalysisMessage,
		}
		if err := s.store.InsertSnapshot(ctx, &snap); err != nil {
			fmt.Printf("Failed to persist snapshot for %s: %v\n", obs.AcquisitionDate.Format("2006-01-02"), err)
			continue
		}
		created = append(created, snap)
	}
	return created, nil
}

// BulkResult is the per-index outcome of a bulk analysis.
type BulkResult struct {
	Success  bool              `json:"success"`
	Snapshot *storage.Snapshot `json:"snapshot,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// BulkAnalyze runs Analyze for several indices concurrently and records
// each mean as a time-series point. Per-index failures do not abort the
// batch.
func (s *Service) BulkAnalyze(ctx context.Context, fieldID uuid.UUID, geom orb.Geometry, types []vi.Type, date time.Time) map[string]BulkResult {
	var mu sync.Mutex
	results := make(map[string]BulkResult, len(types))

	wp := workerpool.New(bulkWorkers)
	for _, t := range types {
		t := t
		wp.Submit(func() {
			snap, err := s.Analyze(ctx, fieldID, geom, t, date)
			if err != nil {
				mu.Lock()
				results[string(t)] = BulkResult{Success: false, Error: err.Error()}
				mu.Unlock()
				return
			}

			if _, err := s.store.InsertPoint(ctx, storage.TimeSeriesPoint{
				FieldID:         fieldID,
				VIType:          string(t),
				MeasurementDate: date,
				Value:           snap.MeanValue,
			}); err != nil {
				fmt.Printf("Failed to record %s time-series point: %v\n", t, err)
			}

			mu.Lock()
			results[string(t)] = BulkResult{Success: true, Snapshot: snap}
			mu.Unlock()
		})
	}
	wp.StopWait()

	return results
}

// Latest returns the most recent stored snapshot per index, nil where a
// field has never been analyzed for that index.
func (s *Service) Latest(ctx context.Context, fieldID uuid.UUID) (map[string]*storage.Snapshot, error) {
	latest := make(map[string]*storage.Snapshot, len(vi.AllTypes))
	for _, t := range vi.AllTypes {
		snap, err := s.store.LatestSnapshot(ctx, fieldID, string(t))
		if err != nil {
			return nil, err
		}
		latest[string(t)] = snap
	}
	return latest, nil
}
