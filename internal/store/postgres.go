package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/skyfence/detection-api/internal/db"
	"github.com/skyfence/detection-api/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const detectionColumns = `id, timestamp, drone_detected, confidence, direction, distance_ft, visual_confidence, thermal_confidence, fused_score, frame_snapshot_url, stream_name, created_at, updated_at`

const insertDetectionSQL = `INSERT INTO detections
	(timestamp, drone_detected, confidence, direction, distance_ft, visual_confidence, thermal_confidence, fused_score, frame_snapshot_url, stream_name)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id, created_at, updated_at`

const getDetectionSQL = `SELECT ` + detectionColumns + ` FROM detections WHERE id = $1`

const deleteDetectionSQL = `DELETE FROM detections WHERE id = $1`

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"insert_detection": insertDetectionSQL,
	"get_detection":    getDetectionSQL,
	"delete_detection": deleteDetectionSQL,
}

// NewPostgres creates a PostgresStore with a connection pool. The pool is
// process-wide state: built once at startup, closed at shutdown, and holding
// nothing but reusable connection handles.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (bulk ingest, health probes).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS detections (
	id                 BIGSERIAL PRIMARY KEY,
	timestamp          TIMESTAMPTZ NOT NULL,
	drone_detected     BOOLEAN NOT NULL,
	confidence         DOUBLE PRECISION NOT NULL,
	direction          VARCHAR(10),
	distance_ft        DOUBLE PRECISION,
	visual_confidence  DOUBLE PRECISION,
	thermal_confidence DOUBLE PRECISION,
	fused_score        DOUBLE PRECISION NOT NULL,
	frame_snapshot_url TEXT,
	stream_name        VARCHAR(100),
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_detections_stream_name ON detections(stream_name);
CREATE INDEX IF NOT EXISTS idx_detections_drone_detected ON detections(drone_detected);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return eris.Wrapf(ErrStorageUnavailable, "postgres: ping: %v", err)
	}
	return nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresMigration); err != nil {
		return eris.Wrapf(ErrStorageUnavailable, "postgres: migrate: %v", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateDetection(ctx context.Context, in model.DetectionCreate) (*model.Detection, error) {
	d := model.Detection{
		Timestamp:         in.Timestamp,
		DroneDetected:     in.DroneDetected,
		Confidence:        in.Confidence,
		Direction:         in.Direction,
		DistanceFt:        in.DistanceFt,
		VisualConfidence:  in.VisualConfidence,
		ThermalConfidence: in.ThermalConfidence,
		FusedScore:        in.FusedScore,
		FrameSnapshotURL:  in.FrameSnapshotURL,
		StreamName:        in.StreamName,
	}

	// Single INSERT .. RETURNING: id and server timestamps are assigned in
	// the same statement that persists the row, so a returned value is never
	// half-initialized.
	err := s.pool.QueryRow(ctx, insertDetectionSQL,
		in.Timestamp, in.DroneDetected, in.Confidence, directionArg(in.Direction),
		in.DistanceFt, in.VisualConfidence, in.ThermalConfidence, in.FusedScore,
		in.FrameSnapshotURL, in.StreamName,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "postgres: insert detection: %v", err)
	}
	return &d, nil
}

func (s *PostgresStore) GetDetection(ctx context.Context, id int64) (*model.Detection, error) {
	d, err := scanDetection(s.pool.QueryRow(ctx, getDetectionSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: detection %d", id)
		}
		return nil, eris.Wrapf(ErrStorageUnavailable, "postgres: get detection %d: %v", id, err)
	}
	return d, nil
}

func (s *PostgresStore) ListDetections(ctx context.Context, filter ListFilter) ([]model.Detection, error) {
	query := `SELECT ` + detectionColumns + ` FROM detections WHERE true`
	args := []any{}
	argIdx := 1

	if filter.StreamName != "" {
		query += fmt.Sprintf(` AND stream_name = $%d`, argIdx)
		args = append(args, filter.StreamName)
		argIdx++
	}
	if filter.DroneOnly {
		query += ` AND drone_detected`
	}

	// Timestamp descending; id breaks ties in insertion order so pages of
	// equal-timestamp rows stay stable.
	query += ` ORDER BY timestamp DESC, id ASC`

	skip, limit := filter.window()
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, argIdx, argIdx+1)
	args = append(args, limit, skip)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "postgres: list detections: %v", err)
	}
	defer rows.Close()

	detections := []model.Detection{}
	for rows.Next() {
		d, err := scanDetection(rows)
		if err != nil {
			return nil, eris.Wrapf(ErrStorageUnavailable, "postgres: scan detection: %v", err)
		}
		detections = append(detections, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrapf(ErrStorageUnavailable, "postgres: list detections iterate: %v", err)
	}
	return detections, nil
}

func (s *PostgresStore) CountDetections(ctx context.Context, filter CountFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM detections WHERE true`
	args := []any{}
	argIdx := 1

	if filter.StreamName != "" {
		query += fmt.Sprintf(` AND stream_name = $%d`, argIdx)
		args = append(args, filter.StreamName)
		argIdx++
	}
	if filter.DroneOnly {
		query += ` AND drone_detected`
	}

	var count int64
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, eris.Wrapf(ErrStorageUnavailable, "postgres: count detections: %v", err)
	}
	return count, nil
}

func (s *PostgresStore) UpdateDetection(ctx context.Context, id int64, in model.DetectionUpdate) (*model.Detection, error) {
	sets := []string{}
	args := []any{}
	argIdx := 1

	set := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if in.Timestamp != nil {
		set("timestamp", *in.Timestamp)
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

	if len(sets) == 0 {
		return s.GetDetection(ctx, id)
	}

	query := `UPDATE detections SET `
	for i, clause := range sets {
		if i > 0 {
			query += ", "
		}
		query += clause
	}
	query += fmt.Sprintf(`, updated_at = now() WHERE id = $%d RETURNING `+detectionColumns, argIdx)
	args = append(args, id)

	d, err := scanDetection(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "postgres: detection %d", id)
		}
		return nil, eris.Wrapf(ErrStorageUnavailable, "postgres: update detection %d: %v", id, err)
	}
	return d, nil
}

func (s *PostgresStore) DeleteDetection(ctx context.Context, id int64) (bool, error) {
	tag, err := s.pool.Exec(ctx, deleteDetectionSQL, id)
	if err != nil {
		return false, eris.Wrapf(ErrStorageUnavailable, "postgres: delete detection %d: %v", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// scanDetection reads one detection row in detectionColumns order.
func scanDetection(row pgx.Row) (*model.Detection, error) {
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

// directionArg converts the optional enum to a nullable text argument.
func directionArg(d *model.Direction) *string {
	if d == nil {
		return nil
	}
	s := string(*d)
	return &s
}
