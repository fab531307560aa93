package saves

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"novella/internal/logging"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is kept in PRAGMA user_version.
const schemaVersion = 1

// ErrSchemaMismatch reports a save database written by an incompatible build.
var ErrSchemaMismatch = errors.New("save database schema mismatch")

// migrate creates the tables in a fresh database and refuses one stamped with
// another version.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("read save database version: %w", err)
	}
	switch current {
	case schemaVersion:
		return nil
	case 0:
	default:
		return fmt.Errorf("%w: %s is at version %d, expected %d (move it aside to start over)",
			ErrSchemaMismatch, s.path, current, schemaVersion)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create save tables: %w", err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("stamp save database version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	s.logger.Info("save database created", logging.String("path", s.path))
	return nil
}
