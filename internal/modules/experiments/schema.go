package experiments

import "database/sql"

// Schema creates the experiments table in the results database. Requests and
// results are stored as JSON documents; timestamps are Unix seconds.
const Schema = `
CREATE TABLE IF NOT EXISTS experiments (
	uuid TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	request_json TEXT NOT NULL,
	result_json TEXT,
	error TEXT,
	created_at INTEGER NOT NULL,
	started_at INTEGER,
	completed_at INTEGER,
	duration_ms REAL
);

CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);
CREATE INDEX IF NOT EXISTS idx_experiments_kind ON experiments(kind);
CREATE INDEX IF NOT EXISTS idx_experiments_created ON experiments(created_at);
`

// InitSchema creates the experiments table and indexes if they do not exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
