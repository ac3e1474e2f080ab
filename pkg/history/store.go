// Package history keeps an append-only record of benchmark runs in a SQLite
// database under the perfscope state directory. The history is advisory:
// failures to record never fail the run that produced them.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/perfscope/perfscope/pkg/perf"
)

const dbFileName = "history.db"

// Run is one recorded benchmark run.
type Run struct {
	ID              string    `db:"id" json:"id"`
	Command         string    `db:"command" json:"command"`
	StartedAt       time.Time `db:"started_at" json:"startedAt"`
	DurationMs      int64     `db:"duration_ms" json:"durationMs"`
	MetricsJSON     string    `db:"metrics" json:"-"`
	BaselineVersion *string   `db:"baseline_version" json:"baselineVersion,omitempty"`
	InvestigationID *string   `db:"investigation_id" json:"investigationId,omitempty"`
}

// Metrics decodes the stored metrics document.
func (r Run) Metrics() (map[string]float64, error) {
	metrics := make(map[string]float64)
	if err := json.Unmarshal([]byte(r.MetricsJSON), &metrics); err != nil {
		return nil, errors.Wrap(err, "failed to decode run metrics")
	}
	return metrics, nil
}

// Store is a SQLite-backed run history.
type Store struct {
	db *sqlx.DB
}

// NewStore opens (and if needed creates) the history database under the given
// perfscope data directory.
func NewStore(ctx context.Context, dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create data directory")
	}

	db, err := sqlx.Open("sqlite", filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, errors.Wrap(err, "failed to open history database")
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping history database")
	}

	if err := configureDatabase(ctx, db); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to configure history database")
	}

	store := &Store{db: db}
	if err := store.initializeSchema(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to initialize history schema")
	}

	return store, nil
}

// configureDatabase sets SQLite pragmas for single-writer WAL operation.
func configureDatabase(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Wrapf(err, "failed to execute pragma: %s", pragma)
		}
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)
	return nil
}

// Record appends a completed run to the history.
func (s *Store) Record(ctx context.Context, result *perf.RunResult, baselineVersion, investigationID string) (*Run, error) {
	metricsJSON, err := json.Marshal(result.Metrics)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode run metrics")
	}

	run := Run{
		ID:          uuid.NewString(),
		Command:     result.Command,
		StartedAt:   result.StartedAt.UTC(),
		DurationMs:  result.Duration.Milliseconds(),
		MetricsJSON: string(metricsJSON),
	}
	if baselineVersion != "" {
		run.BaselineVersion = &baselineVersion
	}
	if investigationID != "" {
		run.InvestigationID = &investigationID
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO runs (id, command, started_at, duration_ms, metrics, baseline_version, investigation_id)
		VALUES (:id, :command, :started_at, :duration_ms, :metrics, :baseline_version, :investigation_id)`,
		run)
	if err != nil {
		return nil, errors.Wrap(err, "failed to insert run")
	}

	return &run, nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, command, started_at, duration_ms, metrics, baseline_version, investigation_id
		FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to query recent runs")
	}
	return runs, nil
}

// ByInvestigation returns all runs recorded against an investigation, oldest
// first.
func (s *Store) ByInvestigation(ctx context.Context, investigationID string) ([]Run, error) {
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, `
		SELECT id, command, started_at, duration_ms, metrics, baseline_version, investigation_id
		FROM runs WHERE investigation_id = ? ORDER BY started_at ASC`, investigationID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrap(err, "failed to query runs by investigation")
	}
	return runs, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
