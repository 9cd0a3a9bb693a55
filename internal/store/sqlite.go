package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/skyfence/detection-api/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Intended for local
// development and tests; production deployments run the Postgres driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS detections (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp          DATETIME NOT NULL,
	drone_detected     BOOLEAN NOT NULL,
	confidence         REAL NOT NULL,
	direction          TEXT,
	distance_ft        REAL,
	visual_confidence  REAL,
	thermal_confidence REAL,
	fused_score        REAL NOT NULL,
	frame_snapshot_url TEXT,
	stream_name        TEXT,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_detections_stream_name ON detections(stream_name);
CREATE INDEX IF NOT EXISTS idx_detections_drone_detected ON detections(drone_detected);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrapf(ErrStorageUnavailable, "sqlite: migrate: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return eris.Wrapf(ErrStorageUnavailable, "sqlite: ping: %v", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateDetection(ctx context.Context, in model.DetectionCreate) (*model.Detection, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO detections
		 (timestamp, drone_detected, confidence, direction, distance_ft, visual_confidence, thermal_confidence, fused_score, frame_snapshot_url, stream_name, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.Timestamp.UTC(), in.DroneDetected, in.Confidence, directionArg(in.Direction),
		in.DistanceFt, in.VisualConfidence, in.ThermalConfidence, in.FusedScore,
		in.FrameSnapshotURL, in.StreamName, now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: insert detection: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: insert detection id: %v", err)
	}

	return &model.Detection{
		ID:                id,
		Timestamp:         in.Timestamp.UTC(),
		DroneDetected:     in.DroneDetected,
		Confidence:        in.Confidence,
		Direction:         in.Direction,
		DistanceFt:        in.DistanceFt,
		VisualConfidence:  in.VisualConfidence,
		ThermalConfidence: in.ThermalConfidence,
		FusedScore:        in.FusedScore,
		FrameSnapshotURL:  in.FrameSnapshotURL,
		StreamName:        in.StreamName,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (s *SQLiteStore) GetDetection(ctx context.Context, id int64) (*model.Detection, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+detectionColumns+` FROM detections WHERE id = ?`, id)

	d, err := scanSQLiteDetection(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "sqlite: detection %d", id)
		}
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: get detection %d: %v", id, err)
	}
	return d, nil
}

func (s *SQLiteStore) ListDetections(ctx context.Context, filter ListFilter) ([]model.Detection, error) {
	query := `SELECT ` + detectionColumns + ` FROM detections WHERE 1=1`
	args := []any{}

	if filter.StreamName != "" {
		query += ` AND stream_name = ?`
		args = append(args, filter.StreamName)
	}
	if filter.DroneOnly {
		query += ` AND drone_detected = 1`
	}

	query += ` ORDER BY timestamp DESC, id ASC`

	skip, limit := filter.window()
	query += ` LIMIT ? OFFSET ?`
	args = append(args, limit, skip)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: list detections: %v", err)
	}
	defer rows.Close()

	detections := []model.Detection{}
	for rows.Next() {
		d, err := scanSQLiteDetection(rows)
		if err != nil {
			return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: scan detection: %v", err)
		}
		detections = append(detections, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: list detections iterate: %v", err)
	}
	return detections, nil
}

func (s *SQLiteStore) CountDetections(ctx context.Context, filter CountFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM detections WHERE 1=1`
	args := []any{}

	if filter.StreamName != "" {
		query += ` AND stream_name = ?`
		args = append(args, filter.StreamName)
	}
	if filter.DroneOnly {
		query += ` AND drone_detected = 1`
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, eris.Wrapf(ErrStorageUnavailable, "sqlite: count detections: %v", err)
	}
	return count, nil
}

func (s *SQLiteStore) UpdateDetection(ctx context.Context, id int64, in model.DetectionUpdate) (*model.Detection, error) {
	sets := ""
	args := []any{}

	set := func(column string, value any) {
		if sets != "" {
			sets += ", "
		}
		sets += column + " = ?"
		args = append(args, value)
	}

	if in.Timestamp != nil {
		set("timestamp", in.Timestamp.UTC())
	}
	if in.DroneDetected != nil {
		set("drone_detected", *in.DroneDetected)
	}
	if in.Confidence != nil {
		set("confidence", *in.Confidence)
	}
	if in.Direction != nil {
		set("direction", string(*in.Direction))
	}
	if in.DistanceFt != nil {
		set("distance_ft", *in.DistanceFt)
	}
	if in.VisualConfidence != nil {
		set("visual_confidence", *in.VisualConfidence)
	}
	if in.ThermalConfidence != nil {
		set("thermal_confidence", *in.ThermalConfidence)
	}
	if in.FusedScore != nil {
		set("fused_score", *in.FusedScore)
	}
	if in.FrameSnapshotURL != nil {
		set("frame_snapshot_url", *in.FrameSnapshotURL)
	}
	if in.StreamName != nil {
		set("stream_name", *in.StreamName)
	}

	if sets == "" {
		return s.GetDetection(ctx, id)
	}

	query := fmt.Sprintf(`UPDATE detections SET %s, updated_at = ? WHERE id = ?`, sets)
	args = append(args, time.Now().UTC(), id)

	// Update and re-read in one transaction so the returned snapshot is the
	// exact row state this update produced.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: update detection %d: begin: %v", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: update detection %d: %v", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: update detection %d: %v", id, err)
	}
	if n == 0 {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: detection %d", id)
	}

	row := tx.QueryRowContext(ctx,
		`SELECT `+detectionColumns+` FROM detections WHERE id = ?`, id)
	d, err := scanSQLiteDetection(row)
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: update detection %d: reread: %v", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "sqlite: update detection %d: commit: %v", id, err)
	}
	return d, nil
}

func (s *SQLiteStore) DeleteDetection(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM detections WHERE id = ?`, id)
	if err != nil {
		return false, eris.Wrapf(ErrStorageUnavailable, "sqlite: delete detection %d: %v", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrapf(ErrStorageUnavailable, "sqlite: delete detection %d: %v", id, err)
	}
	return n > 0, nil
}

// sqlScanner covers both *sql.Row and *sql.Rows.
type sqlScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDetection(row sqlScanner) (*model.Detection, error) {
	var d model.Detection
	var direction *string

	err := row.Scan(
		&d.ID, &d.Timestamp, &d.DroneDetected, &d.Confidence, &direction,
		&d.DistanceFt, &d.VisualConfidence, &d.ThermalConfidence, &d.FusedScore,
		&d.FrameSnapshotURL, &d.StreamName, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if direction != nil {
		dir := model.Direction(*direction)
		d.Direction = &dir
	}
	return &d, nil
}
