package cache

import "time"

// TTL constants for the cached artifact classes. Everything in cache.db is
// a deterministic recomputable numeric result, so the TTLs bound staleness
// after code changes rather than tracking external data.
const (
	// QSP phase optimization is the most expensive classical step.
	TTLPhases = 30 * 24 * time.Hour // 30 days

	// Block matrices and spectra grow with system size but rebuild in
	// seconds at the sizes the sync API allows.
	TTLBlockMatrices = 7 * 24 * time.Hour // 7 days
	TTLSpectra       = 7 * 24 * time.Hour // 7 days
)
