package playback

import (
	"context"
	"sync"
	"time"
)

// AllSlots asks HideCharacter to clear every slot.
const AllSlots = -1

// Handle tracks one presentation command. Done closes when the command has
// finished, whether it ran to completion or was cut short by Cancel.
type Handle interface {
	Done() <-chan struct{}
	Cancel()
}

// ShowOptions carries the optional sprite parameters of a show directive.
type ShowOptions struct {
	CharID  string
	Scale   *float64
	AnchorY *float64
	Flip    bool
}

// Dialogue is one line of text. Speaker is a display name, empty for
// narration.
type Dialogue struct {
	Speaker string
	Text    string
}

// Port renders what the session asks for. Implementations must not call back
// into the session; completion is reported through the returned Handle.
type Port interface {
	SetBackground(ctx context.Context, url string, duration time.Duration, dark bool) Handle
	ShowCharacter(ctx context.Context, slot int, url string, opts ShowOptions) Handle
	// HideCharacter hides one slot, or every slot when slot is AllSlots.
	HideCharacter(ctx context.Context, slot int) Handle
	SetExpression(ctx context.Context, slot int, url string) Handle
	PresentText(ctx context.Context, line Dialogue, charsPerSecond float64) Handle
	PresentChoices(ctx context.Context, labels []string) Handle
	// Status shows a short user-visible message such as "Saved".
	Status(message string)
}

// Task is a ready-made Handle for Port implementations. The worker finishes
// the task; Cancel only asks it to stop.
type Task struct {
	done     chan struct{}
	stop     chan struct{}
	doneOnce sync.Once
	stopOnce sync.Once
}

// NewTask returns a running task.
func NewTask() *Task {
	return &Task{done: make(chan struct{}), stop: make(chan struct{})}
}

// Completed returns a task that has already finished.
func Completed() *Task {
	t := NewTask()
	t.Finish()
	return t
}

// Done implements Handle.
func (t *Task) Done() <-chan struct{} { return t.done }

// Cancel implements Handle.
func (t *Task) Cancel() {
	t.stopOnce.Do(func() { close(t.stop) })
}

// Stopped closes when Cancel is called.
func (t *Task) Stopped() <-chan struct{} { return t.stop }

// Canceled reports whether Cancel has been called.
func (t *Task) Canceled() bool {
	select {
	case <-t.stop:
		return true
	default:
		return false
	}
}

// Finish marks the task done. It is safe to call more than once.
func (t *Task) Finish() {
	t.doneOnce.Do(func() { close(t.done) })
}

func isDone(h Handle) bool {
	if h == nil {
		return true
	}
	select {
	case <-h.Done():
		return true
	default:
		return false
	}
}
