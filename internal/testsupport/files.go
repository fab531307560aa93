package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"novella/internal/scenario"
)

// WriteFile writes contents to path, creating parent directories.
func WriteFile(t testing.TB, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// MustParseScenario parses doc and fails the test on error.
func MustParseScenario(t testing.TB, doc string) *scenario.Scenario {
	t.Helper()

	sc, err := scenario.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("scenario.Parse: %v", err)
	}
	return sc
}
