package playback_test

import (
	"context"
	"errors"
	"testing"

	"novella/internal/config"
	"novella/internal/logging"
	"novella/internal/playback"
	"novella/internal/saves"
	"novella/internal/scenario"
	"novella/internal/testsupport"
)

const persistScenario = `{"meta":{"title":"t","start":"S","affection":{"a":2}},"scenes":{
  "S":[
    {"text":"one","affection":{"delta":{"a":1}}},
    {"text":"two","affection":{"delta":{"a":5}}},
    {"text":"three"}
  ]}}`

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, persistScenario)
	h.start(t)
	if got := h.session.Affection()["a"]; got != 3 {
		t.Fatalf("a = %d, want 3", got)
	}
	if err := h.session.Save(ctx, "manual"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	h.advance(t)
	h.advance(t)
	requirePosition(t, h.session, "S", 2)

	if err := h.session.Load(ctx, "manual"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	requirePosition(t, h.session, "S", 0)
	requireState(t, h.session, playback.AwaitingAdvance)
	if got := h.session.Affection(); len(got) != 1 || got["a"] != 3 {
		t.Fatalf("affection after load = %v, want {a:3}", got)
	}
	if h.session.Status() != "Autosaved" {
		t.Fatalf("unexpected status %q", h.session.Status())
	}
}

func TestLoadRejectsRecordForOtherScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, persistScenario)
	h.start(t)
	h.advance(t)
	before := h.session.Affection()

	h.saver.records["stale"] = saves.Record{Scene: "gone", Index: 0, Affection: map[string]int{"a": 99}}
	err := h.session.Load(ctx, "stale")
	if !errors.Is(err, saves.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
	requirePosition(t, h.session, "S", 1)
	requireState(t, h.session, playback.AwaitingAdvance)
	if h.session.Affection()["a"] != before["a"] {
		t.Fatalf("ledger changed on rejected load: %v", h.session.Affection())
	}
	if h.session.Status() != "Save data is corrupt" {
		t.Fatalf("unexpected status %q", h.session.Status())
	}

	h.saver.records["far"] = saves.Record{Scene: "S", Index: 9}
	if err := h.session.Load(ctx, "far"); !errors.Is(err, saves.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt for out-of-range index, got %v", err)
	}
	requirePosition(t, h.session, "S", 1)
}

func TestLoadMissingSlot(t *testing.T) {
	h := newHarness(t, persistScenario)
	h.start(t)

	err := h.session.Load(context.Background(), "nothing")
	if !errors.Is(err, saves.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.session.Status() != "No save found" {
		t.Fatalf("unexpected status %q", h.session.Status())
	}
	requirePosition(t, h.session, "S", 0)
}

func TestRestoreWithoutAffectionReseeds(t *testing.T) {
	h := newHarness(t, persistScenario)
	h.start(t)
	h.advance(t)

	if err := h.session.Restore(context.Background(), saves.Record{Scene: "S", Index: 2}); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if got := h.session.Affection()["a"]; got != 2 {
		t.Fatalf("a = %d, want seed 2", got)
	}
	requirePosition(t, h.session, "S", 2)
}

func TestSaveAfterFinishLoadsFinished(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, persistScenario)
	h.start(t)
	h.advance(t)
	h.advance(t)
	h.advance(t)
	requireState(t, h.session, playback.Finished)
	requirePosition(t, h.session, "S", 3)

	if err := h.session.Save(ctx, "done"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if rec := h.saver.records["done"]; rec.Scene != "S" || rec.Index != 3 {
		t.Fatalf("saved position = %s#%d, want S#3", rec.Scene, rec.Index)
	}

	presented := len(h.port.texts)
	if err := h.session.Load(ctx, "done"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	requireState(t, h.session, playback.Finished)
	for _, d := range h.port.texts[presented:] {
		if d.Text == "three" {
			t.Fatal("loading a finished save presented the last line again")
		}
	}
}

func TestSaveWithoutBackend(t *testing.T) {
	h := newHarness(t, persistScenario, func(o *playback.Options, _ *fakePort) { o.Saves = nil })
	h.start(t)
	if err := h.session.Save(context.Background(), ""); !errors.Is(err, playback.ErrNoSaves) {
		t.Fatalf("expected ErrNoSaves, got %v", err)
	}
}

func TestAutosaveDisabled(t *testing.T) {
	h := newHarness(t, persistScenario, func(o *playback.Options, _ *fakePort) { o.Autosave = false })
	h.start(t)
	h.advance(t)
	if len(h.saver.puts) != 0 {
		t.Fatalf("expected no autosaves, got %d", len(h.saver.puts))
	}
}

func TestAutosaveThroughConfiguredBackends(t *testing.T) {
	for _, backend := range []string{config.SavesBackendSQLite, config.SavesBackendFile} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testsupport.NewConfig(t, testsupport.WithSavesBackend(backend))
			store := testsupport.MustOpenSaves(t, cfg)
			sc := testsupport.MustParseScenario(t, persistScenario)

			s := playback.New(scenario.NewStore(sc), nil, &fakePort{}, logging.NewNop(), playback.OptionsFromConfig(cfg, store))
			if err := s.Start(ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			if err := s.Advance(ctx); err != nil {
				t.Fatalf("Advance: %v", err)
			}

			rec, err := store.Get(ctx, cfg.Playback.SaveSlot)
			if err != nil {
				t.Fatalf("Get autosave: %v", err)
			}
			if rec.Scene != "S" || rec.Index != 1 || rec.Affection["a"] != 8 {
				t.Fatalf("unexpected autosave %#v", rec)
			}

			fresh := playback.New(scenario.NewStore(sc), nil, &fakePort{}, logging.NewNop(), playback.OptionsFromConfig(cfg, store))
			if err := fresh.Load(ctx, ""); err != nil {
				t.Fatalf("Load: %v", err)
			}
			requirePosition(t, fresh, "S", 1)
			if fresh.Affection()["a"] != 8 {
				t.Fatalf("affection not restored: %v", fresh.Affection())
			}
		})
	}
}
