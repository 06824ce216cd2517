package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS vi_timeseries (
	field_id         TEXT NOT NULL,
	vi_type          TEXT NOT NULL,
	measurement_date TEXT NOT NULL,
	vi_value         REAL NOT NULL,
	PRIMARY KEY (field_id, vi_type, measurement_date)
);

CREATE TABLE IF NOT EXISTS vi_snapshots (
	id            TEXT PRIMARY KEY,
	field_id      TEXT NOT NULL,
	vi_type       TEXT NOT NULL,
	snapshot_date TEXT NOT NULL,
	mean_value    REAL NOT NULL,
	min_value     REAL NOT NULL,
	max_value     REAL NOT NULL,
	overlay_ref   TEXT NOT NULL,
	message       TEXT NOT NULL,
	created_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_field ON vi_snapshots (field_id, vi_type, snapshot_date DESC);
`

const dateLayout = time.RFC3339

// SQLiteStore is the embedded implementation of Store.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %v", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create schema: %v", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %v", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListPoints(ctx context.Context, fieldID uuid.UUID, viType string, start, end time.Time) ([]TimeSeriesPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT field_id, vi_type, measurement_date, vi_value
		FROM vi_timeseries
		WHERE field_id = ? AND vi_type = ? AND measurement_date BETWEEN ? AND ?
		ORDER BY measurement_date ASC`,
		fieldID.String(), viType, start.UTC().Format(dateLayout), end.UTC().Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query timeseries: %v", err)
	}
	defer rows.Close()

	var points []TimeSeriesPoint
	for rows.Next() {
		var p TimeSeriesPoint
		var id, date string
		if err := rows.Scan(&id, &p.VIType, &date, &p.Value); err != nil {
			return nil, fmt.Errorf("failed to scan timeseries row: %v", err)
		}
		if p.FieldID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid field id in timeseries row: %v", err)
		}
		if p.MeasurementDate, err = time.Parse(dateLayout, date); err != nil {
			return nil, fmt.Errorf("invalid date in timeseries row: %v", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *SQLiteStore) InsertPoint(ctx context.Context, p TimeSeriesPoint) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO vi_timeseries (field_id, vi_type, measurement_date, vi_value)
		VALUES (?, ?, ?, ?)`,
		p.FieldID.String(), p.VIType, p.MeasurementDate.UTC().Format(dateLayout), p.Value)
	if err != nil {
		return false, fmt.Errorf("failed to insert timeseries point: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLiteStore) InsertSnapshot(ctx context.Context, snap *Snapshot) error {
	if snap.ID == uuid.Nil {
		snap.ID = uuid.New()
	}
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vi_snapshots (id, field_id, vi_type, snapshot_date, mean_value, min_value, max_value, overlay_ref, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID.String(), snap.FieldID.String(), snap.VIType,
		snap.SnapshotDate.UTC().Format(dateLayout),
		snap.MeanValue, snap.MinValue, snap.MaxValue,
		snap.OverlayRef, snap.Message,
		snap.CreatedAt.Format(dateLayout))
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %v", err)
	}
	return nil
}

func (s *SQLiteStore) HasSnapshotOn(ctx context.Context, fieldID uuid.UUID, viType string, day time.Time) (bool, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM vi_snapshots
		WHERE field_id = ? AND vi_type = ? AND snapshot_date >= ? AND snapshot_date < ?`,
		fieldID.String(), viType, dayStart.Format(dateLayout), dayEnd.Format(dateLayout)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check snapshot existence: %v", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, fieldID uuid.UUID, viType string, limit int) ([]Snapshot, error) {
	query := `
		SELECT id, field_id, vi_type, snapshot_date, mean_value, min_value, max_value, overlay_ref, message, created_at
		FROM vi_snapshots WHERE field_id = ?`
	args := []any{fieldID.String()}
	if viType != "" {
		query += " AND vi_type = ?"
		args = append(args, viType)
	}
	query += " ORDER BY snapshot_date DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %v", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, *snap)
	}
	return snapshots, rows.Err()
}

func (s *SQLiteStore) LatestSnapshot(ctx context.Context, fieldID uuid.UUID, viType string) (*Snapshot, error) {
	snapshots, err := s.ListSnapshots(ctx, fieldID, viType, 1)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}
	return &snapshots[0], nil
}

func (s *SQLiteStore) DeleteSnapshots(ctx context.Context, fieldID uuid.UUID, viType string) (int64, error) {
	query := "DELETE FROM vi_snapshots WHERE field_id = ?"
	args := []any{fieldID.String()}
	if viType != "" {
		query += " AND vi_type = ?"
		args = append(args, viType)
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %v", err)
	}
	return res.RowsAffected()
}

func scanSnapshot(rows *sql.Rows) (*Snapshot, error) {
	var snap Snapshot
	var id, fieldID, snapshotDate, createdAt string
	if err := rows.Scan(&id, &fieldID, &snap.VIType, &snapshotDate,
		&snap.MeanValue, &snap.MinValue, &snap.MaxValue,
		&snap.OverlayRef, &snap.Message, &createdAt); err != nil {
		return nil, fmt.Errorf("failed to scan snapshot row: %v", err)
	}
	var err error
	if snap.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid snapshot id: %v", err)
	}
	if snap.FieldID, err = uuid.Parse(fieldID); err != nil {
		return nil, fmt.Errorf("invalid field id in snapshot: %v", err)
	}
	if snap.SnapshotDate, err = time.Parse(dateLayout, snapshotDate); err != nil {
		return nil, fmt.Errorf("invalid snapshot date: %v", err)
	}
	if snap.CreatedAt, err = time.Parse(dateLayout, createdAt); err != nil {
		return nil, fmt.Errorf("invalid snapshot created_at: %v", err)
	}
	return &snap, nil
}
