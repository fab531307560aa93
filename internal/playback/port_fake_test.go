package playback_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"novella/internal/affection"
	"novella/internal/logging"
	"novella/internal/playback"
	"novella/internal/saves"
	"novella/internal/scenario"
	"novella/internal/testsupport"
)

// fakePort records calls. In manual mode every handle stays running until
// the test finishes it.
type fakePort struct {
	manual   bool
	calls    []string
	texts    []playback.Dialogue
	speeds   []float64
	choices  [][]string
	statuses []string
	tasks    []*playback.Task
}

func (p *fakePort) handle() playback.Handle {
	if !p.manual {
		return playback.Completed()
	}
	t := playback.NewTask()
	p.tasks = append(p.tasks, t)
	return t
}

func (p *fakePort) lastTask() *playback.Task {
	return p.tasks[len(p.tasks)-1]
}

func (p *fakePort) SetBackground(_ context.Context, url string, d time.Duration, dark bool) playback.Handle {
	p.calls = append(p.calls, fmt.Sprintf("bg %s %s dark=%t", url, d, dark))
	return p.handle()
}

func (p *fakePort) ShowCharacter(_ context.Context, slot int, url string, opts playback.ShowOptions) playback.Handle {
	p.calls = append(p.calls, fmt.Sprintf("show %d %s %s", slot, opts.CharID, url))
	return p.handle()
}

func (p *fakePort) HideCharacter(_ context.Context, slot int) playback.Handle {
	p.calls = append(p.calls, fmt.Sprintf("hide %d", slot))
	return p.handle()
}

func (p *fakePort) SetExpression(_ context.Context, slot int, url string) playback.Handle {
	p.calls = append(p.calls, fmt.Sprintf("expr %d %s", slot, url))
	return p.handle()
}

func (p *fakePort) PresentText(_ context.Context, line playback.Dialogue, cps float64) playback.Handle {
	p.calls = append(p.calls, "text "+line.Text)
	p.texts = append(p.texts, line)
	p.speeds = append(p.speeds, cps)
	return p.handle()
}

func (p *fakePort) PresentChoices(_ context.Context, labels []string) playback.Handle {
	p.calls = append(p.calls, "choices "+strings.Join(labels, "|"))
	p.choices = append(p.choices, labels)
	return p.handle()
}

func (p *fakePort) Status(message string) {
	p.statuses = append(p.statuses, message)
}

// memSaver is an in-memory playback.Saver.
type memSaver struct {
	records map[string]saves.Record
	puts    []saves.Record
}

func newMemSaver() *memSaver {
	return &memSaver{records: make(map[string]saves.Record)}
}

func (m *memSaver) Put(_ context.Context, slot string, rec saves.Record) error {
	m.records[slot] = rec
	m.puts = append(m.puts, rec)
	return nil
}

func (m *memSaver) Get(_ context.Context, slot string) (saves.Record, error) {
	rec, ok := m.records[slot]
	if !ok {
		return saves.Record{}, saves.ErrNotFound
	}
	return rec, nil
}

type harness struct {
	session *playback.Session
	port    *fakePort
	saver   *memSaver
	ledger  *affection.Ledger
}

func newHarness(t *testing.T, doc string, configure ...func(*playback.Options, *fakePort)) *harness {
	t.Helper()

	sc := testsupport.MustParseScenario(t, doc)
	h := &harness{port: &fakePort{}, saver: newMemSaver(), ledger: affection.NewLedger()}
	opts := playback.DefaultOptions()
	opts.Saves = h.saver
	opts.Now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	for _, fn := range configure {
		fn(&opts, h.port)
	}
	h.session = playback.New(scenario.NewStore(sc), h.ledger, h.port, logging.NewNop(), opts)
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func (h *harness) advance(t *testing.T) {
	t.Helper()
	if err := h.session.Advance(context.Background()); err != nil {
		t.Fatalf("Advance: %v", err)
	}
}

func requirePosition(t *testing.T, s *playback.Session, scene string, index int) {
	t.Helper()
	if got := s.Position(); got.Scene != scene || got.Index != index {
		t.Fatalf("position = %s, want %s#%d", got, scene, index)
	}
}

func requireState(t *testing.T, s *playback.Session, want playback.State) {
	t.Helper()
	if got := s.State(); got != want {
		t.Fatalf("state = %s, want %s", got, want)
	}
}

func manual(_ *playback.Options, p *fakePort) { p.manual = true }
