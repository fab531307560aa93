package main

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"novella/internal/config"
	"novella/internal/logging"
	"novella/internal/saves"
	"novella/internal/testsupport"
)

func TestSavesListShowDelete(t *testing.T) {
	for _, backend := range []string{config.SavesBackendSQLite, config.SavesBackendFile} {
		t.Run(backend, func(t *testing.T) {
			env := setupCLITestEnv(t, testsupport.WithSavesBackend(backend))

			out, _, err := runCLI(t, env, "", "saves", "list")
			if err != nil {
				t.Fatalf("saves list: %v", err)
			}
			requireContains(t, out, "No saves")

			seedSave(t, env.cfg, "chapter1", saves.NewRecord("stay", 0, map[string]int{"haru": 4}, time.Unix(1700000000, 0)))

			out, _, err = runCLI(t, env, "", "saves", "list")
			if err != nil {
				t.Fatalf("saves list: %v", err)
			}
			requireContains(t, out, "chapter1")
			requireContains(t, out, "stay")

			out, _, err = runCLI(t, env, "", "saves", "show", "chapter1")
			if err != nil {
				t.Fatalf("saves show: %v", err)
			}
			var rec saves.Record
			if err := json.Unmarshal([]byte(out), &rec); err != nil {
				t.Fatalf("decode record: %v\n%s", err, out)
			}
			if rec.Scene != "stay" || rec.Index != 0 || rec.Affection["haru"] != 4 {
				t.Fatalf("unexpected record %+v", rec)
			}

			out, _, err = runCLI(t, env, "", "saves", "delete", "chapter1")
			if err != nil {
				t.Fatalf("saves delete: %v", err)
			}
			requireContains(t, out, "Deleted slot chapter1")

			_, _, err = runCLI(t, env, "", "saves", "show", "chapter1")
			if err == nil || !strings.Contains(err.Error(), "chapter1") {
				t.Fatalf("expected missing slot error, got %v", err)
			}
		})
	}
}

func TestSavesListJSONAfterPlay(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "\n1\nq\n", "play"); err != nil {
		t.Fatalf("play: %v", err)
	}
	out, _, err := runCLI(t, env, "", "saves", "list", "--json")
	if err != nil {
		t.Fatalf("saves list: %v", err)
	}
	var items []struct {
		Slot  string `json:"slot"`
		Scene string `json:"scene"`
		Index int    `json:"index"`
	}
	if err := json.Unmarshal([]byte(out), &items); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(items) != 1 || items[0].Slot != env.cfg.Playback.SaveSlot || items[0].Scene != "stay" {
		t.Fatalf("unexpected slots %+v", items)
	}
}

func TestSavesRejectUnsafeSlot(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "", "saves", "delete", "../etc")
	if err == nil || !strings.Contains(err.Error(), "invalid save slot") {
		t.Fatalf("expected invalid slot error, got %v", err)
	}
}

func seedSave(t *testing.T, cfg *config.Config, slot string, rec saves.Record) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	backend, err := saves.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("saves.Open: %v", err)
	}
	defer func() { _ = backend.Close() }()
	testsupport.PutSave(t, backend, slot, rec)
}
