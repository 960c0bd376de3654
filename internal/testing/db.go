// Package testing provides test helpers shared across packages.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/aristath/networth/internal/database"
)

// NewTestDB creates a temporary-file SQLite database and applies the embedded schema
// registered for name ("networth", "client_data"). Unknown names get an empty database.
// The returned cleanup function is idempotent.
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	db, cleanup := newTempDB(t, name)
	if err := db.Migrate(); err != nil {
		cleanup()
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}
	return db, cleanup
}

// NewTestDBWithSchema creates a temporary database and executes schema on it.
func NewTestDBWithSchema(t *testing.T, name string, schema string) (*database.DB, func()) {
	t.Helper()

	db, cleanup := newTempDB(t, name)
	if schema != "" {
		if _, err := db.Conn().Exec(schema); err != nil {
			cleanup()
			t.Fatalf("Failed to execute custom schema for test database %s: %v", name, err)
		}
	}
	return db, cleanup
}

func newTempDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: database.ProfileStandard,
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		for _, suffix := range []string{"", "-wal", "-shm"} {
			_ = os.Remove(tmpPath + suffix)
		}
	}
}
