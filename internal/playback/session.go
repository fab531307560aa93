package playback

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"novella/internal/affection"
	"novella/internal/asset"
	"novella/internal/logging"
	"novella/internal/scenario"
)

// maxDiagnostics bounds the retained diagnostics of a long-lived session.
const maxDiagnostics = 256

type pendingKind uint8

const (
	pendingNone pendingKind = iota
	pendingText
	pendingEnd
)

// Session is one playthrough of the scenario held by a store.
type Session struct {
	store    *scenario.Store
	ledger   *affection.Ledger
	resolver *asset.Resolver
	port     Port
	logger   *slog.Logger
	opts     Options

	started bool
	state   State
	pos     Position
	choices []scenario.Choice

	pending     Handle
	pendingKind pendingKind
	choiceView  Handle
	effects     []Handle
	restartArm  bool

	stage       []Slot
	diagnostics []Diagnostic
	status      string
}

// New builds an idle session. A nil ledger is replaced with an empty one.
func New(store *scenario.Store, ledger *affection.Ledger, port Port, logger *slog.Logger, opts Options) *Session {
	if ledger == nil {
		ledger = affection.NewLedger()
	}
	return &Session{
		store:    store,
		ledger:   ledger,
		resolver: asset.New(store, logger),
		port:     port,
		logger:   logging.NewComponentLogger(logger, "playback"),
		opts:     opts.withDefaults(),
	}
}

// State returns the current playback state.
func (s *Session) State() State { return s.state }

// Position returns the current line.
func (s *Session) Position() Position { return s.pos }

// Started reports whether Start has run.
func (s *Session) Started() bool { return s.started }

// Status returns the last status message sent to the port.
func (s *Session) Status() string { return s.status }

// Choices returns the labels of the presented choices.
func (s *Session) Choices() []string {
	labels := make([]string, 0, len(s.choices))
	for _, c := range s.choices {
		labels = append(labels, c.Text)
	}
	return labels
}

// Affection returns a copy of the ledger.
func (s *Session) Affection() map[string]int {
	return s.ledger.Snapshot()
}

// Stage returns a copy of the slot states.
func (s *Session) Stage() []Slot {
	out := make([]Slot, len(s.stage))
	copy(out, s.stage)
	return out
}

// Diagnostics returns the data errors met so far, oldest first.
func (s *Session) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(s.diagnostics))
	copy(out, s.diagnostics)
	return out
}

// RestartArmed reports whether a Tap would restart the finished story.
func (s *Session) RestartArmed() bool { return s.restartArm }

// Pending returns a channel that closes when the in-flight text presentation
// completes, or nil when nothing is in flight. A nil channel blocks forever in
// a select, so drivers can select on it unconditionally.
func (s *Session) Pending() <-chan struct{} {
	if s.pending == nil {
		return nil
	}
	return s.pending.Done()
}

// Wait blocks until the in-flight presentation completes and processes it.
func (s *Session) Wait(ctx context.Context) error {
	if s.pending == nil {
		return nil
	}
	select {
	case <-s.pending.Done():
		s.PresentationDone(ctx)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PresentationDone processes a completed presentation. Calls for a handle
// that has not finished, or that was superseded, are ignored.
func (s *Session) PresentationDone(ctx context.Context) {
	if s.pending == nil || !isDone(s.pending) {
		return
	}
	kind := s.pendingKind
	s.pending = nil
	s.pendingKind = pendingNone
	switch kind {
	case pendingText:
		if s.state == Presenting {
			s.state = AwaitingAdvance
		}
	case pendingEnd:
		if s.state == Finished {
			s.restartArm = true
			s.logger.DebugContext(ctx, "restart armed")
		}
	}
}

// Start begins playback at the start scene, line 0. Calling it again starts
// over.
func (s *Session) Start(ctx context.Context) error {
	sc := s.store.Scenario()
	if sc == nil {
		return ErrNoScenario
	}
	s.cancelInFlight()
	s.ledger.Initialize(sc.AffectionSeeds()...)
	s.resetStage()
	s.started = true
	s.pos = Position{Scene: s.store.StartScene()}
	s.logger.InfoContext(ctx, "playback started",
		logging.String("title", sc.Meta.Title),
		logging.String(logging.FieldScene, s.pos.Scene),
	)
	s.evaluate(ctx)
	return nil
}

// Advance moves past the current text line.
func (s *Session) Advance(ctx context.Context) error {
	if !s.started {
		return ErrNotStarted
	}
	if s.state != AwaitingAdvance {
		return ErrNotAwaitingAdvance
	}
	line, ok := s.store.Line(s.pos.Scene, s.pos.Index)
	if !ok {
		s.report(ctx, DiagBadIndex, "line %d is no longer in scene %q", s.pos.Index, s.pos.Scene)
		s.finish(ctx)
		return nil
	}
	s.follow(ctx, line.Next)
	return nil
}

// Choose selects one of the presented choices.
func (s *Session) Choose(ctx context.Context, index int) error {
	if !s.started {
		return ErrNotStarted
	}
	if s.state != AwaitingChoice {
		return ErrNotAwaitingChoice
	}
	if index < 0 || index >= len(s.choices) {
		return fmt.Errorf("%w: %d of %d", ErrInvalidChoice, index, len(s.choices))
	}
	choice := s.choices[index]
	s.choices = nil
	if s.choiceView != nil {
		s.choiceView.Cancel()
		s.choiceView = nil
	}
	s.logger.InfoContext(ctx, "choice selected", logging.Args(
		append(logging.Position(s.pos.Scene, s.pos.Index),
			logging.Int("choice", index),
			logging.String("label", choice.Text),
		)...,
	)...)
	s.applyEffects(ctx, choice.Effects, true)
	s.follow(ctx, choice.Next)
	return nil
}

// Restart cancels in-flight work and plays again from the start scene.
func (s *Session) Restart(ctx context.Context) error {
	if !s.started {
		return ErrNotStarted
	}
	s.logger.InfoContext(ctx, "playback restarted")
	return s.Start(ctx)
}

// Tap is generic pointer input: it advances text, restarts a finished story
// once the end text has played, and is otherwise ignored.
func (s *Session) Tap(ctx context.Context) bool {
	switch {
	case s.state == AwaitingAdvance:
		return s.Advance(ctx) == nil
	case s.state == Finished && s.restartArm:
		s.restartArm = false
		return s.Restart(ctx) == nil
	default:
		return false
	}
}

// Reload swaps the scenario and starts again.
func (s *Session) Reload(ctx context.Context, sc *scenario.Scenario) error {
	if sc == nil {
		return ErrNoScenario
	}
	s.cancelInFlight()
	s.store.Replace(sc)
	s.started = false
	s.state = Idle
	s.logger.InfoContext(ctx, "scenario reloaded", logging.String("title", sc.Meta.Title))
	return s.Start(ctx)
}

// evaluate runs the current line and keeps going through skip and
// effect-only lines until something waits for input or the story ends.
func (s *Session) evaluate(ctx context.Context) {
	s.run(ctx, false)
}

// run is evaluate. When resumed is set the first line's affection is not
// applied again, since the restored ledger already includes it.
func (s *Session) run(ctx context.Context, resumed bool) {
	steps := 0
	for {
		s.state = Presenting
		lines, ok := s.store.Scene(s.pos.Scene)
		switch {
		case !ok:
			s.report(ctx, DiagMissingScene, "scene %q does not exist", s.pos.Scene)
			s.finish(ctx)
			return
		case len(lines) == 0:
			s.report(ctx, DiagEmptyScene, "scene %q has no lines", s.pos.Scene)
			s.finish(ctx)
			return
		case s.pos.Index < 0 || s.pos.Index > len(lines):
			s.report(ctx, DiagBadIndex, "index %d is outside scene %q (%d lines)", s.pos.Index, s.pos.Scene, len(lines))
			s.finish(ctx)
			return
		case s.pos.Index == len(lines):
			s.finish(ctx)
			return
		}

		line := lines[s.pos.Index]
		if line.Skip {
			s.pos.Index++
			continue
		}
		s.applyEffects(ctx, line.Effects, !resumed)
		resumed = false
		switch {
		case line.HasChoices():
			s.presentChoices(ctx, line.Choices)
			s.autosave(ctx)
			return
		case line.HasText():
			s.presentText(ctx, line)
			s.autosave(ctx)
			return
		}

		steps++
		if steps > s.opts.MaxAutoSteps {
			s.report(ctx, DiagAutoStepLimit, "more than %d effect-only lines in a row", s.opts.MaxAutoSteps)
			s.finish(ctx)
			return
		}
		next, ok := s.resolve(line.Next)
		if !ok {
			s.finish(ctx)
			return
		}
		s.pos = next
	}
}

func (s *Session) follow(ctx context.Context, target scenario.Target) {
	next, ok := s.resolve(target)
	if !ok {
		s.finish(ctx)
		return
	}
	s.pos = next
	s.evaluate(ctx)
}

// resolve maps a transition to the next position; false means the story ends.
func (s *Session) resolve(target scenario.Target) (Position, bool) {
	switch target.Kind {
	case scenario.TargetEnd:
		return Position{}, false
	case scenario.TargetScene:
		return Position{Scene: target.Scene, Index: target.Index}, true
	default:
		// Running off the end lands on len(lines), the exhausted position,
		// which evaluate turns into Finished. Saves taken there stay finished.
		if _, ok := s.store.Scene(s.pos.Scene); !ok {
			return Position{}, false
		}
		return Position{Scene: s.pos.Scene, Index: s.pos.Index + 1}, true
	}
}

func (s *Session) presentText(ctx context.Context, line scenario.Line) {
	cps := s.opts.TextSpeed
	if line.Speed != nil && *line.Speed > 0 {
		cps = 1 / *line.Speed
	}
	d := Dialogue{
		Speaker: s.speakerName(line.Speaker),
		Text:    norm.NFC.String(line.TextValue()),
	}
	s.logger.DebugContext(ctx, "presenting line", logging.Args(
		append(logging.Position(s.pos.Scene, s.pos.Index), logging.String("speaker", d.Speaker))...,
	)...)
	s.issue(ctx, pendingText, s.port.PresentText(ctx, d, cps))
}

func (s *Session) presentChoices(ctx context.Context, choices []scenario.Choice) {
	if len(choices) > scenario.MaxChoices {
		choices = choices[:scenario.MaxChoices]
	}
	s.choices = choices
	s.state = AwaitingChoice
	s.choiceView = s.port.PresentChoices(ctx, s.Choices())
}

// finish ends the story and presents the end text.
func (s *Session) finish(ctx context.Context) {
	s.state = Finished
	s.choices = nil
	s.restartArm = false
	s.logger.InfoContext(ctx, "story finished", logging.Args(logging.Position(s.pos.Scene, s.pos.Index)...)...)
	s.issue(ctx, pendingEnd, s.port.PresentText(ctx, Dialogue{Text: s.opts.EndText}, s.opts.EndTextSpeed))
}

// issue installs h as the in-flight presentation, superseding any earlier one.
func (s *Session) issue(ctx context.Context, kind pendingKind, h Handle) {
	if s.pending != nil {
		s.pending.Cancel()
	}
	if h == nil {
		h = Completed()
	}
	s.pending = h
	s.pendingKind = kind
	if isDone(h) {
		s.PresentationDone(ctx)
	}
}

func (s *Session) cancelInFlight() {
	if s.pending != nil {
		s.pending.Cancel()
		s.pending = nil
		s.pendingKind = pendingNone
	}
	if s.choiceView != nil {
		s.choiceView.Cancel()
		s.choiceView = nil
	}
	for _, h := range s.effects {
		h.Cancel()
	}
	s.effects = nil
	s.choices = nil
	s.restartArm = false
}

func (s *Session) speakerName(id string) string {
	if id == "" {
		return ""
	}
	if sc := s.store.Scenario(); sc != nil {
		if name, ok := sc.DisplayName(id); ok {
			return name
		}
	}
	// Casers are stateful, so one is built per call.
	return cases.Title(language.Und).String(id)
}

func (s *Session) setStatus(message string) {
	s.status = message
	if s.port != nil {
		s.port.Status(message)
	}
}

// record keeps a diagnostic without logging it.
func (s *Session) record(kind DiagnosticKind, format string, args ...any) Diagnostic {
	d := Diagnostic{
		Kind:    kind,
		Scene:   s.pos.Scene,
		Index:   s.pos.Index,
		Message: fmt.Sprintf(format, args...),
	}
	if len(s.diagnostics) >= maxDiagnostics {
		s.diagnostics = append(s.diagnostics[:0], s.diagnostics[1:]...)
	}
	s.diagnostics = append(s.diagnostics, d)
	return d
}

// report keeps and logs a diagnostic.
func (s *Session) report(ctx context.Context, kind DiagnosticKind, format string, args ...any) {
	d := s.record(kind, format, args...)
	attrs := append(logging.Position(d.Scene, d.Index),
		logging.String("diagnostic", string(d.Kind)),
		logging.String(logging.FieldErrorHint, d.Message),
		logging.String(logging.FieldImpact, "playback ends or effect skipped"),
	)
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), "scenario data error", "playback_"+string(d.Kind), attrs...)
}
