// Package storage persists analysis results. The pipeline only creates
// rows; deletion is driven by the delivery layer on explicit request.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TimeSeriesPoint is one aggregated measurement, unique per
// (field, VI type, measurement date).
type TimeSeriesPoint struct {
	FieldID         uuid.UUID `json:"field_id" csv:"-"`
	VIType          string    `json:"vi_type" csv:"vi_type"`
	MeasurementDate time.Time `json:"measurement_date" csv:"measurement_date"`
	Value           float64   `json:"vi_value" csv:"vi_value"`
}

// Snapshot is a single-date analysis result with its rendered overlay.
type Snapshot struct {
	ID           uuid.UUID `json:"id"`
	FieldID      uuid.UUID `json:"field_id"`
	VIType       string    `json:"vi_type"`
	SnapshotDate time.Time `json:"snapshot_date"`
	MeanValue    float64   `json:"mean_value"`
	MinValue     float64   `json:"min_value"`
	MaxValue     float64   `json:"max_value"`
	OverlayRef   string    `json:"overlay_data"`
	Message      string    `json:"analysis_message"`
	CreatedAt    time.Time `json:"created_at"`
}

type TimeSeriesStore interface {
	// ListPoints returns stored points for the field and index within
	// [start, end], ordered by measurement date ascending.
	ListPoints(ctx context.Context, fieldID uuid.UUID, viType string, start, end time.Time) ([]TimeSeriesPoint, error)

	// InsertPoint stores a point, reporting false without error when the
	// (field, VI type, date) triple already exists.
	InsertPoint(ctx context.Context, p TimeSeriesPoint) (bool, error)
}

type SnapshotStore interface {
	InsertSnapshot(ctx context.Context, s *Snapshot) error

	// HasSnapshotOn reports whether a snapshot already exists for the
	// field, index and calendar day.
	HasSnapshotOn(ctx context.Context, fieldID uuid.UUID, viType string, day time.Time) (bool, error)

	// ListSnapshots returns stored snapshots newest first. An empty
	// viType matches all indices.
	ListSnapshots(ctx context.Context, fieldID uuid.UUID, viType string, limit int) ([]Snapshot, error)

	LatestSnapshot(ctx context.Context, fieldID uuid.UUID, viType string) (*Snapshot, error)

	// DeleteSnapshots removes snapshots for a field, optionally filtered
	// by index, returning the number deleted.
	DeleteSnapshots(ctx context.Context, fieldID uuid.UUID, viType string) (int64, error)
}

// Store is the full persistence surface the pipeline consumes.
type Store interface {
	TimeSeriesStore
	SnapshotStore
}
