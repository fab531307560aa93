package config

const (
	defaultConfigPath      = "~/.config/novella/config.toml"
	defaultDataDir         = "~/.local/share/novella"
	defaultLogDir          = "~/.local/share/novella/logs"
	defaultScenarioFile    = "scenario.json"
	defaultScenarioIndex   = "scenarios.json"
	defaultFetchTimeout    = 10
	defaultTextSpeed       = 40.0
	defaultEndText         = "[END] tap to restart"
	defaultSaveSlot        = "vn_json_autosave_v1"
	defaultMaxAutoSteps    = 10000
	defaultSavesBackend    = SavesBackendSQLite
	defaultServerBind      = "127.0.0.1:7480"
	defaultSessionTTL      = 1800
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultFallbackEnabled = true
	defaultAutosave        = true
)

// Save backend names accepted by saves.backend.
const (
	SavesBackendSQLite = "sqlite"
	SavesBackendFile   = "file"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Scenario: Scenario{
			Location:        defaultScenarioFile,
			Index:           defaultScenarioIndex,
			FallbackDefault: defaultFallbackEnabled,
			FetchTimeout:    defaultFetchTimeout,
		},
		Playback: Playback{
			TextSpeed:    defaultTextSpeed,
			EndText:      defaultEndText,
			Autosave:     defaultAutosave,
			SaveSlot:     defaultSaveSlot,
			MaxAutoSteps: defaultMaxAutoSteps,
		},
		Saves: Saves{
			Backend: defaultSavesBackend,
		},
		Server: Server{
			Bind:       defaultServerBind,
			SessionTTL: defaultSessionTTL,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
