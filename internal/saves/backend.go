package saves

import (
	"context"
	"fmt"
	"log/slog"

	"novella/internal/config"
)

// Backend stores records under named slots.
type Backend interface {
	Put(ctx context.Context, slot string, rec Record) error
	// Get returns ErrNotFound for an empty slot and ErrCorrupt for a record
	// that does not decode.
	Get(ctx context.Context, slot string) (Record, error)
	List(ctx context.Context) ([]Summary, error)
	Delete(ctx context.Context, slot string) error
	Close() error
}

// Open returns the backend selected by cfg.Saves.Backend.
func Open(cfg *config.Config, logger *slog.Logger) (Backend, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	switch cfg.Saves.Backend {
	case config.SavesBackendFile:
		return OpenFileStore(cfg.SavesDir(), logger)
	case config.SavesBackendSQLite, "":
		return OpenSQLite(cfg.SavesDBPath(), logger)
	default:
		return nil, fmt.Errorf("unsupported saves backend %q", cfg.Saves.Backend)
	}
}
