package testutil

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ChrisToms14/PrintEase-Version-2-Client/internal/store"
)

// OpenStore opens a migrated in-memory SQLite store private to the test.
func OpenStore(t *testing.T) *store.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := store.NewStore(store.DriverSQLite, "file:"+name+"?mode=memory&cache=shared", zap.NewNop())
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(); err != nil {
		t.Fatalf("migrate test store: %v", err)
	}
	return s
}
