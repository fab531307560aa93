package saves

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"novella/internal/logging"
)

// SQLiteStore keeps one row per slot.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// OpenSQLite opens or creates the save database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create saves directory: %w", err)
		}
	}
	// Pragmas in the DSN apply to every pooled connection.
	dsn := "file:" + path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	store := &SQLiteStore{
		db:     db,
		path:   path,
		logger: logging.NewComponentLogger(logger, "saves"),
	}
	if err := store.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put writes rec into slot, replacing whatever was there. Every write gets a
// fresh save id.
func (s *SQLiteStore) Put(ctx context.Context, slot string, rec Record) error {
	slot, err := CleanSlot(slot)
	if err != nil {
		return err
	}
	affectionJSON, err := json.Marshal(rec.Affection)
	if err != nil {
		return fmt.Errorf("marshal affection: %w", err)
	}
	saveID := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	err = s.exec(ctx,
		`INSERT INTO saves (slot, save_id, scene, line_index, saved_at, affection_json, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(slot) DO UPDATE SET
             save_id = excluded.save_id,
             scene = excluded.scene,
             line_index = excluded.line_index,
             saved_at = excluded.saved_at,
             affection_json = excluded.affection_json,
             updated_at = excluded.updated_at`,
		slot, saveID, rec.Scene, rec.Index, rec.Timestamp, string(affectionJSON), now,
	)
	if err != nil {
		return fmt.Errorf("put save %s: %w", slot, err)
	}
	s.logger.Debug("save written",
		logging.String("slot", slot),
		logging.String("save_id", saveID),
		logging.String("scene", rec.Scene),
		logging.Int("index", rec.Index),
	)
	return nil
}

// Get loads the record stored in slot.
func (s *SQLiteStore) Get(ctx context.Context, slot string) (Record, error) {
	slot, err := CleanSlot(slot)
	if err != nil {
		return Record{}, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT scene, line_index, saved_at, affection_json FROM saves WHERE slot = ?`, slot)
	var (
		rec           Record
		affectionJSON sql.NullString
	)
	if err := row.Scan(&rec.Scene, &rec.Index, &rec.Timestamp, &affectionJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %s", ErrNotFound, slot)
		}
		return Record{}, fmt.Errorf("get save %s: %w", slot, err)
	}
	if strings.TrimSpace(rec.Scene) == "" || rec.Index < 0 {
		return Record{}, fmt.Errorf("%w: slot %s", ErrCorrupt, slot)
	}
	if affectionJSON.Valid && affectionJSON.String != "" && affectionJSON.String != "null" {
		if err := json.Unmarshal([]byte(affectionJSON.String), &rec.Affection); err != nil {
			return Record{}, fmt.Errorf("%w: slot %s affection: %v", ErrCorrupt, slot, err)
		}
	}
	return rec, nil
}

// List returns every slot ordered by most recent save first.
func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot, save_id, scene, line_index, saved_at, updated_at FROM saves ORDER BY saved_at DESC, slot`)
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum       Summary
			savedAt   int64
			updatedAt string
		)
		if err := rows.Scan(&sum.Slot, &sum.SaveID, &sum.Scene, &sum.Index, &savedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan save: %w", err)
		}
		sum.SavedAt = time.UnixMilli(savedAt)
		if parsed, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
			sum.UpdatedAt = parsed
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saves: %w", err)
	}
	return out, nil
}

// Delete removes slot. Deleting an empty slot is ErrNotFound.
func (s *SQLiteStore) Delete(ctx context.Context, slot string) error {
	slot, err := CleanSlot(slot)
	if err != nil {
		return err
	}
	var res sql.Result
	err = retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("delete save %s: %w", slot, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}

func (s *SQLiteStore) exec(ctx context.Context, query string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, query, args...)
		return err
	})
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
