// Package testing provides shared test helpers: temporary databases with
// the application schemas applied, and fixture experiment requests.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/wallcheb/internal/cache"
	"github.com/aristath/wallcheb/internal/database"
	"github.com/aristath/wallcheb/internal/modules/experiments"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a temporary SQLite database for testing with the schema
// for the named database applied. Returns the database and an idempotent
// cleanup function; the file is removed on cleanup.
//
// Supported names:
//   - "results" - durability profile, experiments schema
//   - "cache"   - speed profile, cache tables
//   - anything else - standard profile, no schema
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	profile := database.ProfileStandard
	switch name {
	case "results":
		profile = database.ProfileResults
	case "cache":
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	switch name {
	case "results":
		err = experiments.InitSchema(db.Conn())
	case "cache":
		err = cache.InitSchema(db.Conn())
	}
	if err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to apply schema for test database %s: %v", name, err)
	}

	cleaned := false
	cleanup := func() {
		if cleaned {
			return
		}
		cleaned = true
		_ = db.Close()
		_ = os.Remove(tmpPath)
	}
	return db, cleanup
}
