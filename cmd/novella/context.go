package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"novella/internal/config"
	"novella/internal/loader"
	"novella/internal/logging"
	"novella/internal/saves"
	"novella/internal/scenario"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// logger writes to the log file only, keeping stdout for command output.
func (c *commandContext) logger() *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.log = logging.NewNop()
			return
		}
		logger, err := logging.NewFileOnly(cfg)
		if err != nil {
			c.log = logging.NewNop()
			return
		}
		c.log = logger
	})
	return c.log
}

func (c *commandContext) openSaves() (saves.Backend, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	backend, err := saves.Open(cfg, c.logger())
	if err != nil {
		return nil, fmt.Errorf("open saves: %w", err)
	}
	return backend, nil
}

// loadScenario runs the full bootstrap chain for candidate.
func (c *commandContext) loadScenario(ctx context.Context, candidate string) (*loader.Result, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return loader.New(cfg, c.logger()).Load(ctx, candidate)
}

// readScenario parses one location without validation or fallback.
func (c *commandContext) readScenario(ctx context.Context, location string) (*scenario.Scenario, string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(location) == "" {
		location = cfg.Scenario.Location
	}
	data, err := loader.New(cfg, c.logger()).Fetch(ctx, location)
	if err != nil {
		return nil, location, err
	}
	sc, err := scenario.Parse(data)
	if err != nil {
		return nil, location, err
	}
	return sc, location, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
