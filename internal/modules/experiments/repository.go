// Package experiments persists projection and phase-compilation runs in the
// results database, tracking their lifecycle from submission to completion.
package experiments

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/wallcheb/internal/utils"
)

// ErrNotFound is returned when no experiment carries the requested uuid.
var ErrNotFound = errors.New("experiment not found")

// Default and maximum page sizes for List.
const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Repository handles experiment persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates an experiments repository on the results database.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "experiments").Logger(),
	}
}

// Create records a new pending experiment and returns it with its uuid and
// creation time populated.
func (r *Repository) Create(kind string, request interface{}) (*Experiment, error) {
	reqJSON, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	exp := &Experiment{
		UUID:      uuid.New().String(),
		Kind:      kind,
		Status:    StatusPending,
		Request:   reqJSON,
		CreatedAt: time.Now().Unix(),
	}
	_, err = r.db.Exec(`
		INSERT INTO experiments (uuid, kind, status, request_json, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, exp.UUID, exp.Kind, exp.Status, string(exp.Request), exp.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert experiment: %w", err)
	}

	r.log.Debug().Str("uuid", exp.UUID).Str("kind", kind).Msg("experiment created")
	return exp, nil
}

// MarkRunning transitions an experiment to running and stamps its start time.
func (r *Repository) MarkRunning(id string) error {
	res, err := r.db.Exec(`
		UPDATE experiments SET status = ?, started_at = ? WHERE uuid = ?
	`, StatusRunning, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to mark experiment running: %w", err)
	}
	return requireAffected(res)
}

// Complete stores the result and transitions the experiment to completed.
func (r *Repository) Complete(id string, result interface{}, durationMS float64) error {
	resJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	res, err := r.db.Exec(`
		UPDATE experiments
		SET status = ?, result_json = ?, completed_at = ?, duration_ms = ?
		WHERE uuid = ?
	`, StatusCompleted, string(resJSON), time.Now().Unix(), durationMS, id)
	if err != nil {
		return fmt.Errorf("failed to complete experiment: %w", err)
	}
	return requireAffected(res)
}

// Fail stores the error text and transitions the experiment to failed.
func (r *Repository) Fail(id string, cause string, durationMS float64) error {
	res, err := r.db.Exec(`
		UPDATE experiments
		SET status = ?, error = ?, completed_at = ?, duration_ms = ?
		WHERE uuid = ?
	`, StatusFailed, cause, time.Now().Unix(), durationMS, id)
	if err != nil {
		return fmt.Errorf("failed to mark experiment failed: %w", err)
	}
	return requireAffected(res)
}

// Get returns one experiment by uuid.
func (r *Repository) Get(id string) (*Experiment, error) {
	row := r.db.QueryRow(`
		SELECT uuid, kind, status, request_json, result_json, error,
		       created_at, started_at, completed_at, duration_ms
		FROM experiments WHERE uuid = ?
	`, id)
	exp, err := scanExperiment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}
	return exp, nil
}

// List returns experiments newest first, optionally filtered by kind and
// status. A non-positive limit falls back to the default page size.
func (r *Repository) List(kind, status string, limit int) ([]*Experiment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT uuid, kind, status, request_json, result_json, error,
		       created_at, started_at, completed_at, duration_ms
		FROM experiments WHERE 1=1
	`
	args := []interface{}{}
	if kind != "" {
		query += " AND kind = ?"
		args = append(args, kind)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list experiments: %w", err)
	}
	defer rows.Close()

	var out []*Experiment
	for rows.Next() {
		exp, err := scanExperiment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		out = append(out, exp)
	}
	return out, rows.Err()
}

// Delete removes one experiment.
func (r *Repository) Delete(id string) error {
	res, err := r.db.Exec(`DELETE FROM experiments WHERE uuid = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete experiment: %w", err)
	}
	return requireAffected(res)
}

// DeleteFinishedBefore removes completed and failed experiments created
// before the cutoff, returning the number removed. Pending and running rows
// are always kept.
func (r *Repository) DeleteFinishedBefore(cutoff time.Time) (int64, error) {
	done := utils.MeasureDBQuery("experiments_prune", r.log)
	res, err := r.db.Exec(`
		DELETE FROM experiments
		WHERE status IN (?, ?) AND created_at < ?
	`, StatusCompleted, StatusFailed, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune experiments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	done(n)
	if n > 0 {
		r.log.Info().Int64("removed", n).Time("cutoff", cutoff).Msg("pruned finished experiments")
	}
	return n, nil
}

// Stats aggregates counts by status and kind plus the average duration of
// finished runs.
func (r *Repository) Stats() (*Stats, error) {
	stats := &Stats{
		ByStatus: make(map[string]int64),
		ByKind:   make(map[string]int64),
	}

	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM experiments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		stats.ByStatus[status] = n
		stats.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	kindRows, err := r.db.Query(`SELECT kind, COUNT(*) FROM experiments GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("failed to count by kind: %w", err)
	}
	defer kindRows.Close()
	for kindRows.Next() {
		var kind string
		var n int64
		if err := kindRows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		stats.ByKind[kind] = n
	}
	if err := kindRows.Err(); err != nil {
		return nil, err
	}

	var avg sql.NullFloat64
	err = r.db.QueryRow(`
		SELECT AVG(duration_ms) FROM experiments WHERE duration_ms IS NOT NULL
	`).Scan(&avg)
	if err != nil {
		return nil, fmt.Errorf("failed to average durations: %w", err)
	}
	if avg.Valid {
		stats.AvgDurationMS = avg.Float64
	}
	return stats, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExperiment(s scanner) (*Experiment, error) {
	var (
		exp         Experiment
		requestJSON string
		resultJSON  sql.NullString
		errText     sql.NullString
		startedAt   sql.NullInt64
		completedAt sql.NullInt64
		durationMS  sql.NullFloat64
	)
	err := s.Scan(
		&exp.UUID, &exp.Kind, &exp.Status, &requestJSON, &resultJSON, &errText,
		&exp.CreatedAt, &startedAt, &completedAt, &durationMS,
	)
	if err != nil {
		return nil, err
	}
	exp.Request = json.RawMessage(requestJSON)
	if resultJSON.Valid {
		exp.Result = json.RawMessage(resultJSON.String)
	}
	if errText.Valid {
		exp.Error = errText.String
	}
	if startedAt.Valid {
		exp.StartedAt = &startedAt.Int64
	}
	if completedAt.Valid {
		exp.CompletedAt = &completedAt.Int64
	}
	if durationMS.Valid {
		exp.DurationMS = &durationMS.Float64
	}
	return &exp, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
