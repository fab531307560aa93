package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"novella/internal/affection"
)

// ShowDirective places a character sprite in a slot.
type ShowDirective struct {
	Slot    int
	CharID  string
	Image   string
	Scale   *float64
	AnchorY *float64
	Flip    bool
}

// HideDirective hides either every slot or the listed ones.
type HideDirective struct {
	All   bool
	Slots []int
}

// ExpressionChange swaps the image of a character already on stage. Slot wins
// over CharID when both are given.
type ExpressionChange struct {
	Slot   *int
	CharID string
	Expr   string
}

// ExpressionSpec is the list of expression changes on a line or choice.
type ExpressionSpec struct {
	Changes []ExpressionChange

	// byCharacter records the {charId: expr} object form.
	byCharacter bool
}

// Effects are the declarative side effects shared by lines and choices.
type Effects struct {
	Background         string
	BackgroundDuration *float64
	Dark               bool
	Show               []ShowDirective
	Hide               *HideDirective
	Affection          *affection.Spec
	Expressions        ExpressionSpec
}

// Empty reports whether applying the effects would do nothing.
func (e Effects) Empty() bool {
	return e.Background == "" &&
		len(e.Show) == 0 &&
		e.Hide == nil &&
		(e.Affection == nil || e.Affection.Empty()) &&
		len(e.Expressions.Changes) == 0
}

// Choice is one branch option.
type Choice struct {
	Text string
	Next Target
	Effects

	// Malformed lists fields that were dropped because of their shape.
	Malformed []string
}

// Line is one step of a scene.
type Line struct {
	Text    *string
	Speaker string
	Speed   *float64
	Next    Target
	Choices []Choice
	Skip    bool
	Effects

	// Malformed lists fields that were dropped because of their shape.
	Malformed []string
}

// HasText reports whether the line carries dialogue text.
func (l Line) HasText() bool {
	return l.Text != nil
}

// TextValue returns the dialogue text or "".
func (l Line) TextValue() string {
	if l.Text == nil {
		return ""
	}
	return *l.Text
}

// HasChoices reports whether the line presents a branch.
func (l Line) HasChoices() bool {
	return len(l.Choices) > 0
}

// Renderable reports whether the line waits for player input.
func (l Line) Renderable() bool {
	return !l.Skip && (l.HasText() || l.HasChoices())
}

func (l *Line) UnmarshalJSON(data []byte) error {
	*l = Line{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		l.Malformed = []string{"line is not an object"}
		return nil
	}
	if raw, ok := fields["ex"]; ok && truthy(raw) {
		// Structural comment: nothing else on the line is consumed.
		l.Skip = true
		return nil
	}
	var p problems
	if raw, ok := firstField(fields, "text"); ok {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			p.add(errors.New("text: expected string"))
		} else {
			l.Text = &text
		}
	}
	var err error
	l.Speaker, err = decodeString(fields, "speaker", "char")
	p.add(err)
	l.Speed, err = decodeFloat(fields, "speed")
	p.add(err)
	if raw, ok := fields["next"]; ok {
		next, err := parseTarget(raw)
		if err != nil {
			p.add(fmt.Errorf("next: %w", err))
		} else {
			l.Next = next
		}
	}
	if raw, ok := firstField(fields, "choices"); ok {
		l.Choices = decodeChoices(raw, &p)
	}
	l.Effects = decodeEffects(fields, &p)
	l.Malformed = p
	return nil
}

// decodeChoices keeps every choice that is an object.
func decodeChoices(raw json.RawMessage, p *problems) []Choice {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.add(errors.New("choices: expected array"))
		return nil
	}
	choices := make([]Choice, 0, len(items))
	for i, item := range items {
		var c Choice
		if err := c.UnmarshalJSON(item); err != nil {
			p.add(fmt.Errorf("choice %d: %w", i, err))
			continue
		}
		choices = append(choices, c)
	}
	return choices
}

func (l Line) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if l.Skip {
		out["ex"] = true
		return json.Marshal(out)
	}
	if l.Text != nil {
		out["text"] = *l.Text
	}
	if l.Speaker != "" {
		out["speaker"] = l.Speaker
	}
	if l.Speed != nil {
		out["speed"] = *l.Speed
	}
	if l.Next.Kind != TargetNext {
		out["next"] = l.Next.jsonValue()
	}
	if len(l.Choices) > 0 {
		out["choices"] = l.Choices
	}
	l.Effects.encode(out)
	return json.Marshal(out)
}

func (c *Choice) UnmarshalJSON(data []byte) error {
	*c = Choice{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return errors.New("expected object")
	}
	var p problems
	var err error
	c.Text, err = decodeString(fields, "text")
	p.add(err)
	if raw, ok := fields["next"]; ok {
		next, err := parseTarget(raw)
		if err != nil {
			p.add(fmt.Errorf("next: %w", err))
		} else {
			c.Next = next
		}
	}
	c.Effects = decodeEffects(fields, &p)
	c.Malformed = p
	return nil
}

func (c Choice) MarshalJSON() ([]byte, error) {
	out := map[string]any{"text": c.Text}
	if c.Next.Kind != TargetNext {
		out["next"] = c.Next.jsonValue()
	}
	c.Effects.encode(out)
	return json.Marshal(out)
}

// decodeEffects reads the effect fields. A field of the wrong shape is
// dropped and noted in p.
func decodeEffects(fields map[string]json.RawMessage, p *problems) Effects {
	var e Effects
	var err error
	e.Background, err = decodeString(fields, "bg")
	p.add(err)
	e.BackgroundDuration, err = decodeFloat(fields, "bgDuration")
	p.add(err)
	if raw, ok := fields["dark"]; ok {
		e.Dark = truthy(raw)
	}
	if raw, ok := firstField(fields, "show"); ok {
		e.Show = decodeShow(raw, p)
	}
	if raw, ok := firstField(fields, "hide"); ok {
		hide, err := parseHide(raw)
		if err != nil {
			p.add(fmt.Errorf("hide: %w", err))
		} else {
			e.Hide = hide
		}
	}
	if raw, ok := firstField(fields, "expression", "expressions"); ok {
		if err := json.Unmarshal(raw, &e.Expressions); err != nil {
			e.Expressions = ExpressionSpec{}
			p.add(fmt.Errorf("expression: %w", err))
		}
	}
	if raw, ok := firstField(fields, "affection", "aff"); ok {
		var spec affection.Spec
		if err := json.Unmarshal(raw, &spec); err != nil {
			p.add(fmt.Errorf("affection: %w", err))
		} else {
			e.Affection = &spec
		}
	}
	return e
}

func decodeShow(raw json.RawMessage, p *problems) []ShowDirective {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		p.add(errors.New("show: expected array of directives"))
		return nil
	}
	show := make([]ShowDirective, 0, len(items))
	for i, item := range items {
		var d ShowDirective
		if err := json.Unmarshal(item, &d); err != nil {
			p.add(fmt.Errorf("show %d: %w", i, err))
			continue
		}
		show = append(show, d)
	}
	return show
}

func (e Effects) encode(out map[string]any) {
	if e.Background != "" {
		out["bg"] = e.Background
	}
	if e.BackgroundDuration != nil {
		out["bgDuration"] = *e.BackgroundDuration
	}
	if e.Dark {
		out["dark"] = true
	}
	if len(e.Show) > 0 {
		out["show"] = e.Show
	}
	if e.Hide != nil {
		if e.Hide.All {
			out["hide"] = true
		} else {
			out["hide"] = e.Hide.Slots
		}
	}
	if len(e.Expressions.Changes) > 0 {
		out["expression"] = e.Expressions
	}
	if e.Affection != nil {
		out["affection"] = e.Affection
	}
}

func parseHide(raw json.RawMessage) (*HideDirective, error) {
	trimmed := bytes.TrimSpace(raw)
	if trimmed[0] != '[' {
		if truthy(trimmed) {
			return &HideDirective{All: true}, nil
		}
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	hide := &HideDirective{Slots: make([]int, 0, len(items))}
	for _, item := range items {
		slot, err := decodeInt(item)
		if err != nil {
			return nil, fmt.Errorf("slot: %w", err)
		}
		hide.Slots = append(hide.Slots, slot)
	}
	return hide, nil
}

func (d *ShowDirective) UnmarshalJSON(data []byte) error {
	*d = ShowDirective{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	if raw, ok := firstField(fields, "slot"); ok {
		slot, err := decodeInt(raw)
		if err != nil {
			return fmt.Errorf("slot: %w", err)
		}
		d.Slot = slot
	}
	var err error
	if d.CharID, err = decodeString(fields, "charId"); err != nil {
		return err
	}
	if d.Image, err = decodeString(fields, "image", "imageKey", "expr", "expression"); err != nil {
		return err
	}
	if d.Scale, err = decodeFloat(fields, "scale"); err != nil {
		return err
	}
	if d.AnchorY, err = decodeFloat(fields, "anchorY"); err != nil {
		return err
	}
	if raw, ok := fields["flip"]; ok {
		d.Flip = truthy(raw)
	}
	return nil
}

func (d ShowDirective) MarshalJSON() ([]byte, error) {
	out := map[string]any{"slot": d.Slot}
	if d.CharID != "" {
		out["charId"] = d.CharID
	}
	if d.Image != "" {
		out["image"] = d.Image
	}
	if d.Scale != nil {
		out["scale"] = *d.Scale
	}
	if d.AnchorY != nil {
		out["anchorY"] = *d.AnchorY
	}
	if d.Flip {
		out["flip"] = true
	}
	return json.Marshal(out)
}

func (s *ExpressionSpec) UnmarshalJSON(data []byte) error {
	*s = ExpressionSpec{}
	trimmed := bytes.TrimSpace(data)
	if isNull(trimmed) {
		return nil
	}
	switch trimmed[0] {
	case '[':
		var items []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return err
		}
		for _, item := range items {
			var change ExpressionChange
			if raw, ok := firstField(item, "slot"); ok {
				slot, err := decodeInt(raw)
				if err != nil {
					return fmt.Errorf("slot: %w", err)
				}
				change.Slot = &slot
			}
			var err error
			if change.CharID, err = decodeString(item, "charId"); err != nil {
				return err
			}
			if change.Expr, err = decodeString(item, "expr", "expression"); err != nil {
				return err
			}
			s.Changes = append(s.Changes, change)
		}
	case '{':
		s.byCharacter = true
		return decodeOrdered(trimmed, func(charID string, value json.RawMessage) error {
			var expr string
			if err := json.Unmarshal(value, &expr); err != nil {
				return fmt.Errorf("%s: expected string", charID)
			}
			s.Changes = append(s.Changes, ExpressionChange{CharID: charID, Expr: expr})
			return nil
		})
	default:
		return fmt.Errorf("unsupported expression spec %s", trimmed)
	}
	return nil
}

func (s ExpressionSpec) MarshalJSON() ([]byte, error) {
	if s.byCharacter {
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, change := range s.Changes {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(change.CharID)
			if err != nil {
				return nil, err
			}
			value, err := json.Marshal(change.Expr)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(value)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	items := make([]map[string]any, 0, len(s.Changes))
	for _, change := range s.Changes {
		item := map[string]any{"expr": change.Expr}
		if change.Slot != nil {
			item["slot"] = *change.Slot
		}
		if change.CharID != "" {
			item["charId"] = change.CharID
		}
		items = append(items, item)
	}
	return json.Marshal(items)
}
