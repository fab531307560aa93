package testsupport

import (
	"path/filepath"
	"testing"

	"novella/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Scenario.Location = filepath.Join(base, "scenario.json")
	cfgVal.Scenario.Index = filepath.Join(base, "scenarios.json")
	cfgVal.Server.Bind = "127.0.0.1:0"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSavesBackend selects the save backend on the test config.
func WithSavesBackend(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Saves.Backend = name
	}
}

// WithScenarioDocument writes doc to the configured scenario location.
func WithScenarioDocument(doc string) ConfigOption {
	return func(b *configBuilder) {
		WriteFile(b.t, b.cfg.Scenario.Location, doc)
	}
}

// WithoutFallback disables the bundled default scenario.
func WithoutFallback() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scenario.FallbackDefault = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
