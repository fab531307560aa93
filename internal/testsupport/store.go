package testsupport

import (
	"context"
	"testing"

	"novella/internal/config"
	"novella/internal/logging"
	"novella/internal/saves"
)

// MustOpenSaves opens the configured save backend for tests and registers cleanup.
func MustOpenSaves(t testing.TB, cfg *config.Config) saves.Backend {
	t.Helper()

	backend, err := saves.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("saves.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = backend.Close()
	})
	return backend
}

// PutSave writes a record and fails the test on error.
func PutSave(t testing.TB, backend saves.Backend, slot string, rec saves.Record) {
	t.Helper()

	if err := backend.Put(context.Background(), slot, rec); err != nil {
		t.Fatalf("backend.Put: %v", err)
	}
}
