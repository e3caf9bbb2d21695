package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/sfmap/internal/event"
	"github.com/roach88/sfmap/internal/sobject"
)

// createTestStore opens a fresh database in a temp dir.
func createTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, opts...)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestEvent builds an update event for a customer.
func createTestEvent(localID, name string) event.SyncEvent {
	obj := sobject.New()
	obj.ID = "001" + localID
	obj.Set("Name", name)
	obj.Set("NumberOfEmployees", int64(12))
	obj.AddFieldToNull("Phone")
	return event.New("Account", obj, event.Local{ID: localID, Type: `Acme\Entity\Customer`}, event.Update)
}
