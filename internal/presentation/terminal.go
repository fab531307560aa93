package presentation

import (
	"context"
	"io"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/rivo/uniseg"

	"novella/internal/playback"
)

// MinTyping is the shortest time a line takes to type out.
const MinTyping = 300 * time.Millisecond

// TerminalOptions tune a Terminal.
type TerminalOptions struct {
	Color bool
	// MinTyping overrides the shortest typing time; zero keeps MinTyping.
	MinTyping time.Duration
}

// Terminal types dialogue out one grapheme cluster at a time. Stage changes
// are printed as dim one-line notes.
type Terminal struct {
	mu        sync.Mutex
	w         io.Writer
	color     bool
	minTyping time.Duration
}

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer, opts TerminalOptions) *Terminal {
	minTyping := opts.MinTyping
	if minTyping <= 0 {
		minTyping = MinTyping
	}
	return &Terminal{w: w, color: opts.Color, minTyping: minTyping}
}

func (t *Terminal) write(s string, colors ...text.Color) {
	if t.color && len(colors) > 0 {
		s = text.Colors(colors).Sprint(s)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = io.WriteString(t.w, s)
}

func (t *Terminal) note(s string) {
	t.write("  · "+s+"\n", text.Faint)
}

func (t *Terminal) SetBackground(_ context.Context, url string, _ time.Duration, dark bool) playback.Handle {
	if dark {
		t.note("fade to black, background " + url)
	} else {
		t.note("background " + url)
	}
	return playback.Completed()
}

func (t *Terminal) ShowCharacter(_ context.Context, slot int, url string, opts playback.ShowOptions) playback.Handle {
	t.note(slotLabel(slot) + " " + stageLabel(opts.CharID, url))
	return playback.Completed()
}

func (t *Terminal) HideCharacter(_ context.Context, slot int) playback.Handle {
	if slot == playback.AllSlots {
		t.note("stage cleared")
	} else {
		t.note(slotLabel(slot) + " cleared")
	}
	return playback.Completed()
}

func (t *Terminal) SetExpression(_ context.Context, slot int, url string) playback.Handle {
	t.note(slotLabel(slot) + " " + url)
	return playback.Completed()
}

// PresentText types the line at charsPerSecond, never faster than the
// minimum typing time. Cancel stops typing and ends the line early.
func (t *Terminal) PresentText(ctx context.Context, line playback.Dialogue, charsPerSecond float64) playback.Handle {
	task := playback.NewTask()
	if line.Speaker != "" {
		t.write(line.Speaker+": ", text.Bold, text.FgCyan)
	}
	clusters := graphemes(line.Text)
	step := typingStep(len(clusters), charsPerSecond, t.minTyping)
	go func() {
		defer task.Finish()
		defer t.write("\n")
		timer := time.NewTimer(step)
		defer timer.Stop()
		for i, cluster := range clusters {
			t.write(cluster)
			if i == len(clusters)-1 {
				return
			}
			select {
			case <-timer.C:
				timer.Reset(step)
			case <-task.Stopped():
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return task
}

func (t *Terminal) PresentChoices(_ context.Context, labels []string) playback.Handle {
	t.write(formatChoices(labels), text.FgYellow)
	return playback.Completed()
}

func (t *Terminal) Status(message string) {
	t.write("["+message+"]\n", text.Faint, text.Italic)
}

// graphemes splits s into user-perceived characters.
func graphemes(s string) []string {
	var out []string
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		out = append(out, gr.Str())
	}
	return out
}

// typingStep spreads the typing time of n clusters evenly. The total is
// n/charsPerSecond, but at least min.
func typingStep(n int, charsPerSecond float64, min time.Duration) time.Duration {
	if n == 0 {
		return 0
	}
	total := min
	if charsPerSecond > 0 && !math.IsInf(charsPerSecond, 0) {
		if d := time.Duration(float64(n) / charsPerSecond * float64(time.Second)); d > total {
			total = d
		}
	}
	return total / time.Duration(n)
}

func slotLabel(slot int) string {
	return "slot " + strconv.Itoa(slot)
}
