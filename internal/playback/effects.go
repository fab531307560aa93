package playback

import (
	"context"
	"time"

	"novella/internal/logging"
	"novella/internal/scenario"
)

// applyEffects runs a line's or choice's effects in a fixed order:
// background, show, hide, affection, expression.
func (s *Session) applyEffects(ctx context.Context, e scenario.Effects, withAffection bool) {
	if e.Background != "" {
		s.setBackground(ctx, e)
	}
	for _, d := range e.Show {
		s.show(ctx, d)
	}
	if e.Hide != nil {
		s.hide(ctx, *e.Hide)
	}
	if withAffection && e.Affection != nil && !e.Affection.Empty() {
		for _, change := range s.ledger.Apply(*e.Affection) {
			s.logger.DebugContext(ctx, "affection changed",
				logging.String("character", change.ID),
				logging.Int("from", change.From),
				logging.Int("to", change.To),
			)
		}
	}
	for _, change := range e.Expressions.Changes {
		s.changeExpression(ctx, change)
	}
}

func (s *Session) setBackground(ctx context.Context, e scenario.Effects) {
	url, ok := s.resolver.Resolve(e.Background)
	if !ok {
		s.record(DiagMissingAsset, "background %q did not resolve", e.Background)
		return
	}
	duration := s.opts.BackgroundDuration
	if e.BackgroundDuration != nil && *e.BackgroundDuration >= 0 {
		duration = time.Duration(*e.BackgroundDuration * float64(time.Second))
	}
	s.track(s.port.SetBackground(ctx, url, duration, e.Dark))
}

func (s *Session) show(ctx context.Context, d scenario.ShowDirective) {
	slot := s.clampSlot(d.Slot)
	if d.Image == "" {
		s.record(DiagMissingAsset, "show directive for slot %d has no image", slot)
		return
	}
	charID := d.CharID
	if charID == "" {
		charID = s.stage[slot].CharID
	}
	url, ok := s.resolver.ResolveFor(charID, d.Image)
	if !ok {
		s.record(DiagMissingAsset, "image %q did not resolve", d.Image)
		return
	}
	s.stage[slot] = Slot{Index: slot, CharID: charID, Image: url, Visible: true}
	s.track(s.port.ShowCharacter(ctx, slot, url, ShowOptions{
		CharID:  charID,
		Scale:   d.Scale,
		AnchorY: d.AnchorY,
		Flip:    d.Flip,
	}))
}

func (s *Session) hide(ctx context.Context, d scenario.HideDirective) {
	if d.All {
		s.resetStage()
		s.track(s.port.HideCharacter(ctx, AllSlots))
		return
	}
	for _, raw := range d.Slots {
		slot := s.clampSlot(raw)
		s.stage[slot] = Slot{Index: slot}
		s.track(s.port.HideCharacter(ctx, slot))
	}
}

// changeExpression targets a slot when one is named, otherwise the slot
// showing the character. A character not on stage is shown in the first free
// slot.
func (s *Session) changeExpression(ctx context.Context, change scenario.ExpressionChange) {
	if change.Slot != nil {
		s.expressionAt(ctx, s.clampSlot(*change.Slot), change.Expr)
		return
	}
	if change.CharID == "" {
		return
	}
	for i, slot := range s.stage {
		if slot.CharID == change.CharID {
			s.expressionAt(ctx, i, change.Expr)
			return
		}
	}
	for i, slot := range s.stage {
		if slot.CharID == "" {
			s.show(ctx, scenario.ShowDirective{Slot: i, CharID: change.CharID, Image: change.Expr})
			return
		}
	}
	s.report(ctx, DiagNoFreeSlot, "character %q is not on stage and every slot is taken", change.CharID)
}

func (s *Session) expressionAt(ctx context.Context, slot int, key string) {
	url, ok := s.resolver.ResolveFor(s.stage[slot].CharID, key)
	if !ok {
		s.record(DiagMissingAsset, "expression %q did not resolve", key)
		return
	}
	s.stage[slot].Image = url
	s.track(s.port.SetExpression(ctx, slot, url))
}

func (s *Session) clampSlot(slot int) int {
	if slot < 0 {
		return 0
	}
	if last := len(s.stage) - 1; slot > last {
		return last
	}
	return slot
}

func (s *Session) resetStage() {
	n := s.store.SlotCount()
	s.stage = make([]Slot, n)
	for i := range s.stage {
		s.stage[i].Index = i
	}
}

// track keeps an effect handle so it can be canceled later. Finished
// handles are dropped as new ones arrive.
func (s *Session) track(h Handle) {
	if h == nil {
		return
	}
	live := s.effects[:0]
	for _, e := range s.effects {
		if !isDone(e) {
			live = append(live, e)
		}
	}
	s.effects = live
	if !isDone(h) {
		s.effects = append(s.effects, h)
	}
}
