package presentation

import (
	"context"
	"sync"
	"time"

	"novella/internal/playback"
)

// Op names a recorded presentation command.
type Op string

const (
	OpBackground Op = "background"
	OpShow       Op = "show"
	OpHide       Op = "hide"
	OpExpression Op = "expression"
	OpText       Op = "text"
	OpChoices    Op = "choices"
	OpStatus     Op = "status"
)

// Command is one recorded Port call. Only the fields of its Op are set.
type Command struct {
	Op         Op       `json:"op"`
	Slot       *int     `json:"slot,omitempty"`
	URL        string   `json:"url,omitempty"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	Dark       bool     `json:"dark,omitempty"`
	CharID     string   `json:"char_id,omitempty"`
	Scale      *float64 `json:"scale,omitempty"`
	AnchorY    *float64 `json:"anchor_y,omitempty"`
	Flip       bool     `json:"flip,omitempty"`
	Speaker    string   `json:"speaker,omitempty"`
	Text       string   `json:"text,omitempty"`
	Speed      float64  `json:"chars_per_second,omitempty"`
	Labels     []string `json:"labels,omitempty"`
	Message    string   `json:"message,omitempty"`
}

// Recorder keeps every call as a Command. Its handles complete immediately,
// so a session driven through it settles within each call.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) add(cmd Command) playback.Handle {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	return playback.Completed()
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.commands))
	copy(out, r.commands)
	return out
}

// Drain returns the recorded commands and forgets them.
func (r *Recorder) Drain() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.commands
	r.commands = nil
	if out == nil {
		out = []Command{}
	}
	return out
}

func (r *Recorder) SetBackground(_ context.Context, url string, duration time.Duration, dark bool) playback.Handle {
	return r.add(Command{Op: OpBackground, URL: url, DurationMS: duration.Milliseconds(), Dark: dark})
}

func (r *Recorder) ShowCharacter(_ context.Context, slot int, url string, opts playback.ShowOptions) playback.Handle {
	return r.add(Command{
		Op:      OpShow,
		Slot:    &slot,
		URL:     url,
		CharID:  opts.CharID,
		Scale:   opts.Scale,
		AnchorY: opts.AnchorY,
		Flip:    opts.Flip,
	})
}

// HideCharacter records a hide; AllSlots is recorded without a slot.
func (r *Recorder) HideCharacter(_ context.Context, slot int) playback.Handle {
	cmd := Command{Op: OpHide}
	if slot != playback.AllSlots {
		cmd.Slot = &slot
	}
	return r.add(cmd)
}

func (r *Recorder) SetExpression(_ context.Context, slot int, url string) playback.Handle {
	return r.add(Command{Op: OpExpression, Slot: &slot, URL: url})
}

func (r *Recorder) PresentText(_ context.Context, line playback.Dialogue, charsPerSecond float64) playback.Handle {
	return r.add(Command{Op: OpText, Speaker: line.Speaker, Text: line.Text, Speed: charsPerSecond})
}

func (r *Recorder) PresentChoices(_ context.Context, labels []string) playback.Handle {
	return r.add(Command{Op: OpChoices, Labels: append([]string(nil), labels...)})
}

func (r *Recorder) Status(message string) {
	r.add(Command{Op: OpStatus, Message: message})
}
