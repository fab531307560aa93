// Package config loads, normalizes, and validates novella configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and applies NOVELLA_* environment overrides on top. Commands
// obtain every knob through Config so the player, the HTTP front end and the
// save backends agree on directories, text speed and the autosave slot.
package config
