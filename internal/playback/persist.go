package playback

import (
	"context"
	"errors"
	"fmt"

	"novella/internal/logging"
	"novella/internal/saves"
)

// Snapshot captures the position and ledger as a save record.
func (s *Session) Snapshot() saves.Record {
	return saves.NewRecord(s.pos.Scene, s.pos.Index, s.ledger.Snapshot(), s.opts.Now())
}

// Restore resumes playback from rec. A record that does not fit the current
// scenario is rejected with saves.ErrCorrupt and leaves the session as it was.
// A record without affection reseeds the ledger from the scenario.
func (s *Session) Restore(ctx context.Context, rec saves.Record) error {
	sc := s.store.Scenario()
	if sc == nil {
		return ErrNoScenario
	}
	lines, ok := s.store.Scene(rec.Scene)
	if !ok || rec.Index < 0 || rec.Index > len(lines) {
		s.setStatus("Save data is corrupt")
		return fmt.Errorf("%w: %s#%d is not in the current scenario", saves.ErrCorrupt, rec.Scene, rec.Index)
	}
	s.cancelInFlight()
	if rec.Affection != nil {
		s.ledger.Restore(rec.Affection)
	} else {
		s.ledger.Initialize(sc.AffectionSeeds()...)
	}
	s.resetStage()
	s.track(s.port.HideCharacter(ctx, AllSlots))
	s.started = true
	s.pos = Position{Scene: rec.Scene, Index: rec.Index}
	s.logger.InfoContext(ctx, "playback restored", logging.Args(logging.Position(rec.Scene, rec.Index)...)...)
	s.setStatus("Loaded")
	s.run(ctx, true)
	return nil
}

// Save writes a snapshot to slot, or to the configured slot when slot is
// empty.
func (s *Session) Save(ctx context.Context, slot string) error {
	if s.opts.Saves == nil {
		return ErrNoSaves
	}
	if !s.started {
		return ErrNotStarted
	}
	if slot == "" {
		slot = s.opts.SaveSlot
	}
	if err := s.opts.Saves.Put(ctx, slot, s.Snapshot()); err != nil {
		s.setStatus("Save failed")
		return fmt.Errorf("save %s: %w", slot, err)
	}
	s.setStatus("Saved")
	return nil
}

// Load restores the record in slot, or in the configured slot when slot is
// empty. On any failure the session is unchanged.
func (s *Session) Load(ctx context.Context, slot string) error {
	if s.opts.Saves == nil {
		return ErrNoSaves
	}
	if slot == "" {
		slot = s.opts.SaveSlot
	}
	rec, err := s.opts.Saves.Get(ctx, slot)
	switch {
	case errors.Is(err, saves.ErrNotFound):
		s.setStatus("No save found")
		return fmt.Errorf("load %s: %w", slot, err)
	case errors.Is(err, saves.ErrCorrupt):
		s.setStatus("Save data is corrupt")
		return fmt.Errorf("load %s: %w", slot, err)
	case err != nil:
		s.setStatus("Load failed")
		return fmt.Errorf("load %s: %w", slot, err)
	}
	if err := s.Restore(ctx, rec); err != nil {
		return fmt.Errorf("load %s: %w", slot, err)
	}
	return nil
}

func (s *Session) autosave(ctx context.Context) {
	if !s.opts.Autosave || s.opts.Saves == nil {
		return
	}
	if err := s.opts.Saves.Put(ctx, s.opts.SaveSlot, s.Snapshot()); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "autosave failed", "autosave_failed",
			logging.Error(err),
			logging.String("slot", s.opts.SaveSlot),
			logging.String(logging.FieldImpact, "progress since the last save may be lost"),
		)
		s.setStatus("Autosave failed")
		return
	}
	s.setStatus("Autosaved")
}
