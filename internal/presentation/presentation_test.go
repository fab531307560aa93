package presentation_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"novella/internal/affection"
	"novella/internal/logging"
	"novella/internal/playback"
	"novella/internal/presentation"
	"novella/internal/scenario"
	"novella/internal/testsupport"
)

// syncBuffer guards a bytes.Buffer written by the typing goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitDone(t *testing.T, h playback.Handle) {
	t.Helper()
	select {
	case <-h.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("handle did not complete")
	}
}

func TestTerminalTypesWholeGraphemes(t *testing.T) {
	out := &syncBuffer{}
	term := presentation.NewTerminal(out, presentation.TerminalOptions{MinTyping: time.Millisecond})

	h := term.PresentText(context.Background(), playback.Dialogue{Speaker: "Haru", Text: "é👋🏽!"}, 10_000)
	waitDone(t, h)

	if got := out.String(); got != "Haru: é👋🏽!\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestTerminalHonoursMinimumTypingTime(t *testing.T) {
	out := &syncBuffer{}
	term := presentation.NewTerminal(out, presentation.TerminalOptions{MinTyping: 60 * time.Millisecond})

	start := time.Now()
	h := term.PresentText(context.Background(), playback.Dialogue{Text: "abcd"}, 1e9)
	waitDone(t, h)
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("typing finished after %s, expected the minimum typing time", elapsed)
	}
}

func TestTerminalCancelStopsTyping(t *testing.T) {
	out := &syncBuffer{}
	term := presentation.NewTerminal(out, presentation.TerminalOptions{})

	h := term.PresentText(context.Background(), playback.Dialogue{Text: strings.Repeat("x", 200)}, 1)
	h.Cancel()
	waitDone(t, h)
	if got := out.String(); len(got) > 10 || !strings.HasSuffix(got, "\n") {
		t.Fatalf("expected a short, terminated line after cancel, got %q", got)
	}
}

func TestPlainPrintsInstantly(t *testing.T) {
	var out bytes.Buffer
	port := presentation.Select(&out)
	if _, ok := port.(*presentation.Plain); !ok {
		t.Fatalf("expected Plain for a non-terminal writer, got %T", port)
	}
	ctx := context.Background()
	for _, h := range []playback.Handle{
		port.SetBackground(ctx, "img/room.png", time.Second, false),
		port.ShowCharacter(ctx, 1, "img/haru.png", playback.ShowOptions{CharID: "haru"}),
		port.PresentText(ctx, playback.Dialogue{Speaker: "Haru", Text: "hi"}, 40),
		port.PresentChoices(ctx, []string{"Yes", "No"}),
		port.HideCharacter(ctx, playback.AllSlots),
	} {
		select {
		case <-h.Done():
		default:
			t.Fatal("plain handles must already be done")
		}
	}
	port.Status("Saved")

	want := "[background img/room.png]\n" +
		"[slot 1: haru img/haru.png]\n" +
		"Haru: hi\n" +
		"  1) Yes\n  2) No\n" +
		"[stage cleared]\n" +
		"(Saved)\n"
	if out.String() != want {
		t.Fatalf("output:\n%s\nwant:\n%s", out.String(), want)
	}
}

func TestRecorderDrivesSessionSynchronously(t *testing.T) {
	doc := `{"meta":{"title":"t"},"characters":{"haru":{"name":"Haru"}},"scenes":{"a":[
	  {"bg":"https://cdn.test/bg.png","show":[{"slot":0,"charId":"haru","image":"https://cdn.test/h.png","scale":0.8}],
	   "speaker":"haru","text":"Hello"},
	  {"choices":[{"text":"Yes"},{"text":"No"}]}
	]}}`
	sc := testsupport.MustParseScenario(t, doc)
	rec := presentation.NewRecorder()
	s := playback.New(scenario.NewStore(sc), affection.NewLedger(), rec, logging.NewNop(), playback.DefaultOptions())
	ctx := context.Background()

	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != playback.AwaitingAdvance {
		t.Fatalf("recorder handles should settle the text at once, state = %s", s.State())
	}
	cmds := rec.Drain()
	ops := make([]string, 0, len(cmds))
	for _, c := range cmds {
		ops = append(ops, string(c.Op))
	}
	if strings.Join(ops, ",") != "background,show,text" {
		t.Fatalf("unexpected ops %v", ops)
	}
	if cmds[0].DurationMS != 700 || *cmds[1].Scale != 0.8 || cmds[2].Speaker != "Haru" || cmds[2].Speed != 40 {
		t.Fatalf("unexpected commands %#v", cmds)
	}

	if err := s.Advance(ctx); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	cmds = rec.Drain()
	if len(cmds) != 1 || cmds[0].Op != presentation.OpChoices || len(cmds[0].Labels) != 2 {
		t.Fatalf("unexpected commands %#v", cmds)
	}
	data, err := json.Marshal(cmds[0])
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"op":"choices","labels":["Yes","No"]}` {
		t.Fatalf("unexpected JSON %s", data)
	}
	if got := rec.Drain(); len(got) != 0 {
		t.Fatalf("expected drained recorder, got %#v", got)
	}
}
