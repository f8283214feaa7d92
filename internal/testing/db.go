// Package testing provides testing utilities and helpers for the vcaudit project.
package testing

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/aristath/vcaudit/internal/database"
)

// NewTestDB creates a migrated SQLite database in a per-test temporary directory.
// The database is closed automatically when the test ends.
//
// Supported schema names:
//   - "reference" - companies, index_points and comparables
//   - "ledger" - saved valuations
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	if name == database.NameLedger {
		profile = database.ProfileLedger
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), fmt.Sprintf("test_%s.db", name)),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db
}

// GetRawConnection returns the underlying *sql.DB
func GetRawConnection(db *database.DB) *sql.DB {
	return db.Conn()
}
