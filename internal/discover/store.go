package discover

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/croftlabs/agripulse/pkg/series"
)

// Run statuses.
const (
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run is the persisted record of one discovery run.
type Run struct {
	ID            string    `json:"id"`
	FocusSensorID string    `json:"focus_sensor_id"`
	Strategies    []string  `json:"strategies"`
	Status        string    `json:"status"`
	Error         string    `json:"error,omitempty"`
	Evaluated     int       `json:"evaluated"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// DiscoverStore provides database access for the Discover plugin.
type DiscoverStore struct {
	db *sql.DB
}

// NewDiscoverStore creates a new DiscoverStore backed by the given database.
func NewDiscoverStore(db *sql.DB) *DiscoverStore {
	return &DiscoverStore{db: db}
}

// InsertRun inserts a run record.
func (s *DiscoverStore) InsertRun(ctx context.Context, r *Run) error {
	strategies, err := json.Marshal(r.Strategies)
	if err != nil {
		return fmt.Errorf("marshal strategies: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO discover_runs (id, focus_sensor_id, strategies, status, error, evaluated, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FocusSensorID, string(strategies), r.Status, r.Error, r.Evaluated, r.DurationMS, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetRun returns one run by ID, or sql.ErrNoRows if absent.
func (s *DiscoverStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, focus_sensor_id, strategies, status, error, evaluated, duration_ms, created_at
		FROM discover_runs WHERE id = ?`, id)
	return scanRun(row)
}

// ListRuns returns the most recent runs, optionally filtered by focus sensor.
func (s *DiscoverStore) ListRuns(ctx context.Context, focusSensorID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows *sql.Rows
	var err error
	if focusSensorID == "" {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, focus_sensor_id, strategies, status, error, evaluated, duration_ms, created_at
			FROM discover_runs ORDER BY created_at DESC LIMIT ?`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT id, focus_sensor_id, strategies, status, error, evaluated, duration_ms, created_at
			FROM discover_runs WHERE focus_sensor_id = ? ORDER BY created_at DESC LIMIT ?`,
			focusSensorID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var strategies string
	if err := row.Scan(&r.ID, &r.FocusSensorID, &strategies, &r.Status, &r.Error,
		&r.Evaluated, &r.DurationMS, &r.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan run row: %w", err)
	}
	if err := json.Unmarshal([]byte(strategies), &r.Strategies); err != nil {
		return nil, fmt.Errorf("unmarshal strategies: %w", err)
	}
	return &r, nil
}

// InsertCandidates stores a run's normalized candidate list in one transaction.
func (s *DiscoverStore) InsertCandidates(ctx context.Context, runID string, cands []series.NormalizedCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO discover_candidates (run_id, sensor_id, strategy, rank, score, score_label, status, badges, raw_payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare candidate insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range cands {
		badges, err := json.Marshal(c.EvidenceBadges)
		if err != nil {
			return fmt.Errorf("marshal badges: %w", err)
		}
		payload, err := json.Marshal(c.RawPayload)
		if err != nil {
			return fmt.Errorf("marshal raw payload: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, runID, c.SensorID, c.Strategy, c.Rank,
			c.Score, c.ScoreLabel, c.Status, string(badges), string(payload)); err != nil {
			return fmt.Errorf("insert candidate: %w", err)
		}
	}
	return tx.Commit()
}

// ListCandidates returns a run's candidates in presentation order
// (strategy, then rank).
func (s *DiscoverStore) ListCandidates(ctx context.Context, runID string, limit int) ([]series.NormalizedCandidate, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor_id, strategy, rank, score, score_label, status, badges, raw_payload
		FROM discover_candidates WHERE run_id = ? ORDER BY strategy, rank LIMIT ?`,
		runID, limit)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var cands []series.NormalizedCandidate
	for rows.Next() {
		var c series.NormalizedCandidate
		var badges, payload string
		if err := rows.Scan(&c.SensorID, &c.Strategy, &c.Rank, &c.Score,
			&c.ScoreLabel, &c.Status, &badges, &payload); err != nil {
			return nil, fmt.Errorf("scan candidate row: %w", err)
		}
		if err := json.Unmarshal([]byte(badges), &c.EvidenceBadges); err != nil {
			return nil, fmt.Errorf("unmarshal badges: %w", err)
		}
		var raw any
		if err := json.Unmarshal([]byte(payload), &raw); err == nil {
			c.RawPayload = raw
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}

// DeleteOldRuns removes runs (and, via cascade, their candidates) created
// before the cutoff. Returns the number of runs deleted.
func (s *DiscoverStore) DeleteOldRuns(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM discover_runs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old runs: %w", err)
	}
	return res.RowsAffected()
}
