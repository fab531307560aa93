package presentation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"novella/internal/playback"
)

// Plain writes every line at once and only mentions stage changes as short
// bracketed notes. Every handle it returns is already done.
type Plain struct {
	mu sync.Mutex
	w  io.Writer
}

// NewPlain returns a Plain port writing to w.
func NewPlain(w io.Writer) *Plain {
	return &Plain{w: w}
}

func (p *Plain) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}

func (p *Plain) SetBackground(_ context.Context, url string, _ time.Duration, _ bool) playback.Handle {
	p.printf("[background %s]\n", url)
	return playback.Completed()
}

func (p *Plain) ShowCharacter(_ context.Context, slot int, url string, opts playback.ShowOptions) playback.Handle {
	p.printf("[slot %d: %s]\n", slot, stageLabel(opts.CharID, url))
	return playback.Completed()
}

func (p *Plain) HideCharacter(_ context.Context, slot int) playback.Handle {
	if slot == playback.AllSlots {
		p.printf("[stage cleared]\n")
	} else {
		p.printf("[slot %d cleared]\n", slot)
	}
	return playback.Completed()
}

func (p *Plain) SetExpression(_ context.Context, slot int, url string) playback.Handle {
	p.printf("[slot %d: %s]\n", slot, url)
	return playback.Completed()
}

func (p *Plain) PresentText(_ context.Context, line playback.Dialogue, _ float64) playback.Handle {
	p.printf("%s\n", formatDialogue(line))
	return playback.Completed()
}

func (p *Plain) PresentChoices(_ context.Context, labels []string) playback.Handle {
	p.printf("%s", formatChoices(labels))
	return playback.Completed()
}

func (p *Plain) Status(message string) {
	p.printf("(%s)\n", message)
}

func formatDialogue(line playback.Dialogue) string {
	if line.Speaker == "" {
		return line.Text
	}
	return line.Speaker + ": " + line.Text
}

func formatChoices(labels []string) string {
	var b strings.Builder
	for i, label := range labels {
		fmt.Fprintf(&b, "  %d) %s\n", i+1, label)
	}
	return b.String()
}

func stageLabel(charID, url string) string {
	if charID == "" {
		return url
	}
	return charID + " " + url
}
