package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "", "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+env.configPath)
	requireContains(t, out, "scenario.location")
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, env, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	_, _, err = runCLI(t, env, "", "config", "init", "--path", target)
	if err == nil || !strings.Contains(err.Error(), "--overwrite") {
		t.Fatalf("expected refusal without --overwrite, got %v", err)
	}
	if _, _, err := runCLI(t, env, "", "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigInitSkipsBrokenConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.WriteFile(env.configPath, []byte("not = [valid"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	target := filepath.Join(t.TempDir(), "config.toml")
	if _, _, err := runCLI(t, env, "", "config", "init", "--path", target); err != nil {
		t.Fatalf("config init should not load the broken config: %v", err)
	}
	if _, _, err := runCLI(t, env, "", "config", "validate"); err == nil {
		t.Fatal("expected config validate to fail on a broken file")
	}
}

func TestLogsShowsPlayActivity(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "q\n", "play"); err != nil {
		t.Fatalf("play: %v", err)
	}
	out, _, err := runCLI(t, env, "", "logs", "-n", "0")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "playback started")

	out, _, err = runCLI(t, env, "", "logs", "--session", "no-such-session")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.TrimSpace(out) != "" {
		t.Fatalf("expected no lines for an unknown session, got:\n%s", out)
	}
}
