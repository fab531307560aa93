package playback

import (
	"context"
	"time"

	"novella/internal/config"
	"novella/internal/saves"
)

// Saver is the part of a save backend the session uses.
type Saver interface {
	Put(ctx context.Context, slot string, rec saves.Record) error
	Get(ctx context.Context, slot string) (saves.Record, error)
}

// Options tune a Session.
type Options struct {
	// TextSpeed is the default typewriter speed in characters per second.
	TextSpeed float64
	// EndText is presented when the story finishes.
	EndText      string
	EndTextSpeed float64
	Autosave     bool
	SaveSlot     string
	// MaxAutoSteps bounds how many effect-only lines may run back to back.
	MaxAutoSteps int
	// BackgroundDuration applies when a line has no bgDuration.
	BackgroundDuration time.Duration
	Saves              Saver
	Now                func() time.Time
}

// DefaultOptions returns the stock tuning with autosave on and no backend.
func DefaultOptions() Options {
	return Options{
		TextSpeed:          40,
		EndText:            "[END] tap to restart",
		EndTextSpeed:       100,
		Autosave:           true,
		SaveSlot:           "vn_json_autosave_v1",
		MaxAutoSteps:       10000,
		BackgroundDuration: 700 * time.Millisecond,
		Now:                time.Now,
	}
}

// OptionsFromConfig maps the [playback] section onto Options.
func OptionsFromConfig(cfg *config.Config, backend Saver) Options {
	opts := DefaultOptions()
	if cfg != nil {
		opts.TextSpeed = cfg.Playback.TextSpeed
		opts.EndText = cfg.Playback.EndText
		opts.Autosave = cfg.Playback.Autosave
		opts.SaveSlot = cfg.Playback.SaveSlot
		opts.MaxAutoSteps = cfg.Playback.MaxAutoSteps
	}
	opts.Saves = backend
	return opts
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.TextSpeed <= 0 {
		o.TextSpeed = def.TextSpeed
	}
	if o.EndText == "" {
		o.EndText = def.EndText
	}
	if o.EndTextSpeed <= 0 {
		o.EndTextSpeed = def.EndTextSpeed
	}
	if o.SaveSlot == "" {
		o.SaveSlot = def.SaveSlot
	}
	if o.MaxAutoSteps <= 0 {
		o.MaxAutoSteps = def.MaxAutoSteps
	}
	if o.BackgroundDuration <= 0 {
		o.BackgroundDuration = def.BackgroundDuration
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	return o
}
