package store

import (
	"context"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mta/metro-disruptions/detect"
	"mta/metro-disruptions/features"
)

// Store wraps database access for feature rows and anomaly results.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store backed by a pgx pool and ensures the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the pool resources.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const schemaSQL = `
CREATE SCHEMA IF NOT EXISTS metro;
CREATE TABLE IF NOT EXISTS metro.feature_rows (
    stop_id       text        NOT NULL,
    direction_id  smallint    NOT NULL,
    route_id      text,
    snapshot_ts   bigint      NOT NULL,
    features      real[]      NOT NULL,
    created_at    timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (stop_id, direction_id, snapshot_ts)
);
CREATE TABLE IF NOT EXISTS metro.anomaly_results (
    stop_id       text        NOT NULL,
    direction_id  smallint    NOT NULL,
    snapshot_ts   bigint      NOT NULL,
    score         double precision NOT NULL,
    threshold     double precision,
    alert         boolean     NOT NULL,
    warmup        boolean     NOT NULL,
    created_at    timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (stop_id, direction_id, snapshot_ts)
);
CREATE INDEX IF NOT EXISTS anomaly_results_alert_ts
    ON metro.anomaly_results (snapshot_ts) WHERE alert;
`

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

const insertFeatureRowSQL = `
    INSERT INTO metro.feature_rows (stop_id, direction_id, route_id, snapshot_ts, features)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (stop_id, direction_id, snapshot_ts) DO NOTHING
`

const insertAnomalySQL = `
    INSERT INTO metro.anomaly_results (stop_id, direction_id, snapshot_ts, score, threshold, alert, warmup)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    ON CONFLICT (stop_id, direction_id, snapshot_ts) DO NOTHING
`

// WriteMinute persists one pass worth of rows and results in a single
// batch round trip. Conflicting keys are skipped, so replaying an already
// persisted minute is a no-op.
func (s *Store) WriteMinute(ctx context.Context, rows []features.Vector, results []detect.Result) error {
	batch := &pgx.Batch{}
	for i := range rows {
		v := &rows[i]
		var routeID *string
		if v.RouteID != "" {
			routeID = &v.RouteID
		}
		batch.Queue(insertFeatureRowSQL,
			v.StopID, v.DirectionID, routeID, v.SnapshotTimestamp, v.Values())
	}
	for _, r := range results {
		var threshold *float64
		if !math.IsNaN(r.Threshold) {
			threshold = &r.Threshold
		}
		batch.Queue(insertAnomalySQL,
			r.StopID, r.DirectionID, r.SnapshotTimestamp, r.Score, threshold, r.Alert, r.Warmup)
	}
	if batch.Len() == 0 {
		return nil
	}
	return s.pool.SendBatch(ctx, batch).Close()
}

// Alert is one stored anomaly alert.
type Alert struct {
	StopID            string    `json:"stop_id"`
	DirectionID       int       `json:"direction_id"`
	SnapshotTimestamp int64     `json:"snapshot_ts"`
	Score             float64   `json:"score"`
	Threshold         *float64  `json:"threshold,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

const recentAlertsSQL = `
    SELECT stop_id, direction_id, snapshot_ts, score, threshold, created_at
    FROM metro.anomaly_results
    WHERE alert AND snapshot_ts >= $1
    ORDER BY snapshot_ts DESC, stop_id
    LIMIT $2
`

// RecentAlerts returns alerts at or after the given snapshot timestamp,
// newest first.
func (s *Store) RecentAlerts(ctx context.Context, since int64, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, recentAlertsSQL, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alerts := make([]Alert, 0)
	for rows.Next() {
		var a Alert
		if err := rows.Scan(
			&a.StopID,
			&a.DirectionID,
			&a.SnapshotTimestamp,
			&a.Score,
			&a.Threshold,
			&a.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
