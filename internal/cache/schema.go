package cache

import "database/sql"

// Schema creates the cache tables in cache.db. Every table carries a
// msgpack blob and a unix expiry timestamp; the key column differs per
// table.
const Schema = `
CREATE TABLE IF NOT EXISTS qsp_phases (
    target TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS block_matrices (
    operator_key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS spectra (
    operator_key TEXT PRIMARY KEY,
    data BLOB NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_qsp_phases_expires ON qsp_phases(expires_at);
CREATE INDEX IF NOT EXISTS idx_block_matrices_expires ON block_matrices(expires_at);
CREATE INDEX IF NOT EXISTS idx_spectra_expires ON spectra(expires_at);
`

// InitSchema ensures the cache tables exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(Schema)
	return err
}
