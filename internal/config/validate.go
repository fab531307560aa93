package config

import (
	"errors"
	"fmt"
	"math"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScenario(); err != nil {
		return err
	}
	if err := c.validatePlayback(); err != nil {
		return err
	}
	if err := c.validateSaves(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScenario() error {
	if c.Scenario.Location == "" && c.Scenario.Index == "" && !c.Scenario.FallbackDefault {
		return errors.New("scenario: set location or index, or enable fallback_default")
	}
	return ensurePositiveMap(map[string]int{
		"scenario.fetch_timeout": c.Scenario.FetchTimeout,
	})
}

func (c *Config) validatePlayback() error {
	speed := c.Playback.TextSpeed
	if math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return errors.New("playback.text_speed must be a positive number of characters per second")
	}
	return ensurePositiveMap(map[string]int{
		"playback.max_auto_steps": c.Playback.MaxAutoSteps,
	})
}

func (c *Config) validateSaves() error {
	switch c.Saves.Backend {
	case SavesBackendSQLite, SavesBackendFile:
		return nil
	default:
		return fmt.Errorf("saves.backend: unsupported value %q (want %s or %s)", c.Saves.Backend, SavesBackendSQLite, SavesBackendFile)
	}
}

func (c *Config) validateServer() error {
	return ensurePositiveMap(map[string]int{
		"server.session_ttl": c.Server.SessionTTL,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
