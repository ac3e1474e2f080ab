package history

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

const (
	// SchemaVersion1 is the initial history schema.
	SchemaVersion1 = 1
	// CurrentSchemaVersion is the latest schema version.
	CurrentSchemaVersion = SchemaVersion1
)

const createSchemaVersionTable = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at DATETIME NOT NULL
);
`

const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    command TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    duration_ms INTEGER NOT NULL,
    metrics TEXT NOT NULL,
    baseline_version TEXT,
    investigation_id TEXT
);
`

const createIndexRunsStartedAt = `
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

const createIndexRunsInvestigation = `
CREATE INDEX IF NOT EXISTS idx_runs_investigation ON runs(investigation_id);
`

func (s *Store) initializeSchema(ctx context.Context) error {
	statements := []string{
		createSchemaVersionTable,
		createRunsTable,
		createIndexRunsStartedAt,
		createIndexRunsInvestigation,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to execute schema statement")
		}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, ?)`,
		CurrentSchemaVersion, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}
