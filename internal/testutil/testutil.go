// Package testutil provides shared test helpers for setting up record
// stores and loaded tracker services.
package testutil

import (
	"os"
	"testing"

	"github.com/ronnes/glucolog/internal/store"
	"github.com/ronnes/glucolog/internal/tracker"
)

// TestDB creates a temporary SQLite record store that is automatically
// cleaned up.
func TestDB(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "glucolog-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestService creates a tracker service over a temporary store and loads it.
func TestService(t *testing.T) *tracker.Service {
	t.Helper()
	svc := tracker.NewService(TestDB(t), nil)
	if _, err := svc.Load(); err != nil {
		t.Fatal(err)
	}
	return svc
}
