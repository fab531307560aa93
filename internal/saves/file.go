package saves

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"novella/internal/fileutil"
	"novella/internal/logging"
)

const fileExt = ".json"

// FileStore writes one pretty-printed JSON file per slot. Writers and readers
// share a lock file in the directory so concurrent players cannot interleave a
// rename with a read.
type FileStore struct {
	dir    string
	lock   *flock.Flock
	logger *slog.Logger
}

// OpenFileStore prepares dir for use as a save directory.
func OpenFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create saves directory: %w", err)
	}
	return &FileStore{
		dir:    dir,
		lock:   flock.New(filepath.Join(dir, ".lock")),
		logger: logging.NewComponentLogger(logger, "saves"),
	}, nil
}

// Dir returns the save directory.
func (f *FileStore) Dir() string {
	return f.dir
}

// Close releases the lock file handle.
func (f *FileStore) Close() error {
	return f.lock.Close()
}

func (f *FileStore) slotPath(slot string) string {
	return filepath.Join(f.dir, slot+fileExt)
}

func (f *FileStore) withLock(ctx context.Context, exclusive bool, fn func() error) error {
	lockFn := f.lock.TryRLockContext
	if exclusive {
		lockFn = f.lock.TryLockContext
	}
	ok, err := lockFn(ctx, 20*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire saves lock: %w", err)
	}
	if !ok {
		return errors.New("acquire saves lock: not acquired")
	}
	defer func() { _ = f.lock.Unlock() }()
	return fn()
}

// Put writes rec into slot atomically.
func (f *FileStore) Put(ctx context.Context, slot string, rec Record) error {
	slot, err := CleanSlot(slot)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal save: %w", err)
	}
	data = append(data, '\n')
	return f.withLock(ctx, true, func() error {
		if err := fileutil.WriteAtomic(f.slotPath(slot), data, 0o644); err != nil {
			return fmt.Errorf("replace save %s: %w", slot, err)
		}
		f.logger.Debug("save written",
			logging.String("slot", slot),
			logging.String("scene", rec.Scene),
			logging.Int("index", rec.Index),
		)
		return nil
	})
}

// Get reads and decodes slot.
func (f *FileStore) Get(ctx context.Context, slot string) (Record, error) {
	slot, err := CleanSlot(slot)
	if err != nil {
		return Record{}, err
	}
	var rec Record
	err = f.withLock(ctx, false, func() error {
		data, err := os.ReadFile(f.slotPath(slot))
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, slot)
		}
		if err != nil {
			return fmt.Errorf("read save %s: %w", slot, err)
		}
		rec, err = Decode(data)
		if err != nil {
			return fmt.Errorf("slot %s: %w", slot, err)
		}
		return nil
	})
	return rec, err
}

// List decodes every slot file. Files that do not decode are listed with Err
// set rather than failing the listing.
func (f *FileStore) List(ctx context.Context) ([]Summary, error) {
	var out []Summary
	err := f.withLock(ctx, false, func() error {
		entries, err := os.ReadDir(f.dir)
		if err != nil {
			return fmt.Errorf("read saves directory: %w", err)
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, fileExt) {
				continue
			}
			slot := strings.TrimSuffix(name, fileExt)
			if _, err := CleanSlot(slot); err != nil {
				continue
			}
			sum := Summary{Slot: slot}
			if info, err := entry.Info(); err == nil {
				sum.UpdatedAt = info.ModTime()
			}
			data, err := os.ReadFile(filepath.Join(f.dir, name))
			if err != nil {
				sum.Err = err
				out = append(out, sum)
				continue
			}
			rec, err := Decode(data)
			if err != nil {
				sum.Err = err
				out = append(out, sum)
				continue
			}
			sum.Scene = rec.Scene
			sum.Index = rec.Index
			sum.SavedAt = rec.SavedAt()
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.After(out[j].SavedAt)
		}
		return out[i].Slot < out[j].Slot
	})
	return out, nil
}

// Delete removes slot.
func (f *FileStore) Delete(ctx context.Context, slot string) error {
	slot, err := CleanSlot(slot)
	if err != nil {
		return err
	}
	return f.withLock(ctx, true, func() error {
		err := os.Remove(f.slotPath(slot))
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, slot)
		}
		if err != nil {
			return fmt.Errorf("delete save %s: %w", slot, err)
		}
		return nil
	})
}
