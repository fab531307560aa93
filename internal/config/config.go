package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"novella/internal/fileutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Scenario controls where the story document comes from.
type Scenario struct {
	// Location is a file path or http(s) URL tried first.
	Location string `toml:"location"`
	// Index lists available scenarios and is consulted when Location fails.
	Index string `toml:"index"`
	// FallbackDefault substitutes the bundled scenario when nothing loads.
	FallbackDefault bool `toml:"fallback_default"`
	// FetchTimeout bounds remote fetches, in seconds.
	FetchTimeout int `toml:"fetch_timeout"`
}

// Playback contains state machine settings.
type Playback struct {
	TextSpeed    float64 `toml:"text_speed"` // characters per second
	EndText      string  `toml:"end_text"`
	Autosave     bool    `toml:"autosave"`
	SaveSlot     string  `toml:"save_slot"`
	MaxAutoSteps int     `toml:"max_auto_steps"`
}

// Saves selects the save backend.
type Saves struct {
	Backend string `toml:"backend"` // sqlite or file
}

// Server contains HTTP front end settings.
type Server struct {
	Bind       string `toml:"bind"`
	SessionTTL int    `toml:"session_ttl"` // seconds
	// Token, when set, is required as a bearer token on every API request.
	Token string `toml:"token"`
	// AllowedHosts are extra hosts a client may name in a remote scenario
	// query. The hosts of scenario.location and scenario.index are always
	// allowed.
	AllowedHosts []string `toml:"allowed_hosts"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for novella.
//
// Configuration sections:
//   - Paths: data and log directories
//   - Scenario: where to load the story from and what to do when it fails
//   - Playback: text speed, end text, autosave slot, auto-advance guard
//   - Saves: save backend selection
//   - Server: HTTP bind address and idle session eviction
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Scenario Scenario `toml:"scenario"`
	Playback Playback `toml:"playback"`
	Saves    Saves    `toml:"saves"`
	Server   Server   `toml:"server"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file, and the returned config has every
// path expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("novella.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SavesDBPath is the SQLite database used by the sqlite save backend.
func (c *Config) SavesDBPath() string {
	return filepath.Join(c.Paths.DataDir, "saves.db")
}

// SavesDir holds one JSON file per slot for the file save backend.
func (c *Config) SavesDir() string {
	return filepath.Join(c.Paths.DataDir, "saves")
}

// PlayLockPath guards against two interactive sessions sharing a data dir.
func (c *Config) PlayLockPath() string {
	return filepath.Join(c.Paths.DataDir, "play.lock")
}

// FetchTimeout returns the remote fetch timeout as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Scenario.FetchTimeout) * time.Second
}

// SessionTTL returns the idle session lifetime as a duration.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Server.SessionTTL) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// IsRemote reports whether a scenario location is fetched over HTTP.
func IsRemote(location string) bool {
	lower := strings.ToLower(strings.TrimSpace(location))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// RemoteHosts lists the hosts the server may fetch client-named scenarios
// from.
func (c *Config) RemoteHosts() []string {
	hosts := slices.Clone(c.Server.AllowedHosts)
	for _, location := range []string{c.Scenario.Location, c.Scenario.Index} {
		if !IsRemote(location) {
			continue
		}
		if u, err := url.Parse(location); err == nil && u.Host != "" {
			hosts = append(hosts, strings.ToLower(u.Host))
		}
	}
	return hosts
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := fileutil.WriteAtomic(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
