package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the environment variables that take precedence over the
// config file. Empty values leave the file setting alone.
type envOverrides struct {
	Scenario     string `env:"NOVELLA_SCENARIO"`
	DataDir      string `env:"NOVELLA_DATA_DIR"`
	LogDir       string `env:"NOVELLA_LOG_DIR"`
	LogLevel     string `env:"NOVELLA_LOG_LEVEL"`
	LogFormat    string `env:"NOVELLA_LOG_FORMAT"`
	ServerBind   string `env:"NOVELLA_SERVER_BIND"`
	ServerToken  string `env:"NOVELLA_SERVER_TOKEN"`
	SavesBackend string `env:"NOVELLA_SAVES_BACKEND"`
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	set := func(dst *string, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = value
		}
	}
	set(&c.Scenario.Location, overrides.Scenario)
	set(&c.Paths.DataDir, overrides.DataDir)
	set(&c.Paths.LogDir, overrides.LogDir)
	set(&c.Logging.Level, overrides.LogLevel)
	set(&c.Logging.Format, overrides.LogFormat)
	set(&c.Server.Bind, overrides.ServerBind)
	set(&c.Server.Token, overrides.ServerToken)
	set(&c.Saves.Backend, overrides.SavesBackend)
	return nil
}
