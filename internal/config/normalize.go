package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeScenario(); err != nil {
		return err
	}
	c.normalizePlayback()
	c.normalizeSaves()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

// normalizeScenario expands local scenario paths; URLs are left untouched.
func (c *Config) normalizeScenario() error {
	var err error
	c.Scenario.Location = strings.TrimSpace(c.Scenario.Location)
	if c.Scenario.Location != "" && !IsRemote(c.Scenario.Location) {
		if c.Scenario.Location, err = expandPath(c.Scenario.Location); err != nil {
			return fmt.Errorf("scenario.location: %w", err)
		}
	}
	c.Scenario.Index = strings.TrimSpace(c.Scenario.Index)
	if c.Scenario.Index != "" && !IsRemote(c.Scenario.Index) {
		if c.Scenario.Index, err = expandPath(c.Scenario.Index); err != nil {
			return fmt.Errorf("scenario.index: %w", err)
		}
	}
	if c.Scenario.FetchTimeout == 0 {
		c.Scenario.FetchTimeout = defaultFetchTimeout
	}
	return nil
}

func (c *Config) normalizePlayback() {
	if c.Playback.TextSpeed == 0 {
		c.Playback.TextSpeed = defaultTextSpeed
	}
	if c.Playback.EndText == "" {
		c.Playback.EndText = defaultEndText
	}
	c.Playback.SaveSlot = strings.TrimSpace(c.Playback.SaveSlot)
	if c.Playback.SaveSlot == "" {
		c.Playback.SaveSlot = defaultSaveSlot
	}
	if c.Playback.MaxAutoSteps == 0 {
		c.Playback.MaxAutoSteps = defaultMaxAutoSteps
	}
}

func (c *Config) normalizeSaves() {
	c.Saves.Backend = strings.ToLower(strings.TrimSpace(c.Saves.Backend))
	if c.Saves.Backend == "" {
		c.Saves.Backend = defaultSavesBackend
	}
}

func (c *Config) normalizeServer() {
	c.Server.Bind = strings.TrimSpace(c.Server.Bind)
	c.Server.Token = strings.TrimSpace(c.Server.Token)
	if c.Server.Bind == "" {
		c.Server.Bind = defaultServerBind
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = defaultSessionTTL
	}
	hosts := c.Server.AllowedHosts[:0]
	for _, host := range c.Server.AllowedHosts {
		if host = strings.ToLower(strings.TrimSpace(host)); host != "" {
			hosts = append(hosts, host)
		}
	}
	c.Server.AllowedHosts = hosts
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console", "text", "pretty":
		c.Logging.Format = "console"
	default:
		c.Logging.Format = format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
