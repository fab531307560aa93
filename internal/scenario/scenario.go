package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"novella/internal/affection"
)

const (
	defaultSlots = 2
	maxSlots     = 6
)

// ErrInvalidScenario marks a document that cannot be played at all.
var ErrInvalidScenario = errors.New("invalid scenario")

// Position is a slot anchor in normalized stage coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Assets are the scenario-local key tables used by the asset resolver.
type Assets struct {
	Backgrounds map[string]string
	Characters  map[string]map[string]string
	Flat        map[string]string
}

// Meta carries scenario-wide settings.
type Meta struct {
	Title     string                     `json:"title"`
	Author    string                     `json:"author,omitempty"`
	Start     string                     `json:"start,omitempty"`
	Slots     int                        `json:"slots,omitempty"`
	Positions []Position                 `json:"positions,omitempty"`
	Affection map[string]affection.Value `json:"affection,omitempty"`
	Assets    *Assets                    `json:"assets,omitempty"`
	// Backgrounds is the legacy flat background table.
	Backgrounds map[string]string `json:"backgrounds,omitempty"`
}

// Character is a member of the cast.
type Character struct {
	Name        string            `json:"name"`
	Expressions map[string]string `json:"expressions,omitempty"`
	Affection   *affection.Value  `json:"affection,omitempty"`
}

// Scenario is the whole story document.
type Scenario struct {
	Meta       Meta
	Characters map[string]Character
	Affection  map[string]affection.Value
	Scenes     map[string][]Line
	// SceneOrder lists scene ids in document order.
	SceneOrder []string
}

// Parse decodes and sanity-checks a scenario document. Only structural
// problems fail; see Validate for recoverable issues.
func Parse(data []byte) (*Scenario, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if raw, ok := probe["meta"]; !ok || isNull(raw) {
		return nil, fmt.Errorf("%w: meta is missing", ErrInvalidScenario)
	}
	if raw, ok := probe["scenes"]; !ok || isNull(raw) {
		return nil, fmt.Errorf("%w: scenes is missing", ErrInvalidScenario)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	return &s, nil
}

func (s *Scenario) UnmarshalJSON(data []byte) error {
	var raw struct {
		Meta       Meta                       `json:"meta"`
		Characters map[string]Character       `json:"characters"`
		Affection  map[string]affection.Value `json:"affection"`
		Scenes     json.RawMessage            `json:"scenes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	scenes, order, err := decodeScenes(raw.Scenes)
	if err != nil {
		return fmt.Errorf("scenes: %w", err)
	}
	*s = Scenario{
		Meta:       raw.Meta,
		Characters: raw.Characters,
		Affection:  raw.Affection,
		Scenes:     scenes,
		SceneOrder: order,
	}
	return nil
}

func (s Scenario) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"meta":`)
	meta, err := json.Marshal(s.Meta)
	if err != nil {
		return nil, err
	}
	buf.Write(meta)
	if len(s.Characters) > 0 {
		chars, err := json.Marshal(s.Characters)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"characters":`)
		buf.Write(chars)
	}
	if len(s.Affection) > 0 {
		aff, err := json.Marshal(s.Affection)
		if err != nil {
			return nil, err
		}
		buf.WriteString(`,"affection":`)
		buf.Write(aff)
	}
	buf.WriteString(`,"scenes":{`)
	for i, id := range s.orderedSceneIDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		lines := s.Scenes[id]
		if lines == nil {
			lines = []Line{}
		}
		body, err := json.Marshal(lines)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(body)
	}
	buf.WriteString("}}")
	return buf.Bytes(), nil
}

// decodeScenes accepts {id: [Line]} or [{id, lines: [Line]}].
func decodeScenes(raw json.RawMessage) (map[string][]Line, []string, error) {
	scenes := make(map[string][]Line)
	var order []string
	add := func(id string, lines []Line) {
		if _, seen := scenes[id]; !seen {
			order = append(order, id)
		}
		scenes[id] = lines
	}

	trimmed := bytes.TrimSpace(raw)
	if isNull(trimmed) {
		return scenes, order, nil
	}
	switch trimmed[0] {
	case '{':
		err := decodeOrdered(trimmed, func(id string, value json.RawMessage) error {
			var lines []Line
			if err := json.Unmarshal(value, &lines); err != nil {
				return fmt.Errorf("scene %q: %w", id, err)
			}
			add(id, lines)
			return nil
		})
		if err != nil {
			return nil, nil, err
		}
	case '[':
		var list []struct {
			ID    string `json:"id"`
			Lines []Line `json:"lines"`
		}
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, nil, err
		}
		for i, entry := range list {
			if entry.ID == "" {
				return nil, nil, fmt.Errorf("scene at position %d has no id", i)
			}
			add(entry.ID, entry.Lines)
		}
	default:
		return nil, nil, errors.New("expected object or array")
	}
	return scenes, order, nil
}

func (s *Scenario) orderedSceneIDs() []string {
	seen := make(map[string]struct{}, len(s.SceneOrder))
	ids := make([]string, 0, len(s.Scenes))
	for _, id := range s.SceneOrder {
		if _, ok := s.Scenes[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	var rest []string
	for id := range s.Scenes {
		if _, ok := seen[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	return append(ids, rest...)
}

// SceneIDs returns every scene id in document order.
func (s *Scenario) SceneIDs() []string {
	return s.orderedSceneIDs()
}

// StartScene is meta.start, or the first scene in document order.
func (s *Scenario) StartScene() string {
	if s.Meta.Start != "" {
		return s.Meta.Start
	}
	ids := s.orderedSceneIDs()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// SlotCount is meta.slots clamped to [1, 6], defaulting to 2.
func (s *Scenario) SlotCount() int {
	n := s.Meta.Slots
	if n == 0 {
		return defaultSlots
	}
	if n < 1 {
		return 1
	}
	if n > maxSlots {
		return maxSlots
	}
	return n
}

// DisplayName returns the character's name, if the id is in the cast.
func (s *Scenario) DisplayName(charID string) (string, bool) {
	ch, ok := s.Characters[charID]
	if !ok || ch.Name == "" {
		return "", false
	}
	return ch.Name, true
}

// AffectionSeeds returns the ledger seed tiers in priority order: meta
// affection, top-level affection, inline character affection, and finally a
// zero for every character id known to the cast or asset tables.
func (s *Scenario) AffectionSeeds() []map[string]int {
	metaTier := valuesToInts(s.Meta.Affection)
	topTier := valuesToInts(s.Affection)

	inline := make(map[string]int)
	zeros := make(map[string]int)
	for id, ch := range s.Characters {
		if ch.Affection != nil {
			inline[id] = int(*ch.Affection)
		}
		zeros[id] = 0
	}
	if s.Meta.Assets != nil {
		for id := range s.Meta.Assets.Characters {
			zeros[id] = 0
		}
	}
	return []map[string]int{metaTier, topTier, inline, zeros}
}

func valuesToInts(values map[string]affection.Value) map[string]int {
	out := make(map[string]int, len(values))
	for id, v := range values {
		out[id] = int(v)
	}
	return out
}

func (a *Assets) UnmarshalJSON(data []byte) error {
	*a = Assets{}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		switch key {
		case "backgrounds":
			if err := json.Unmarshal(raw, &a.Backgrounds); err != nil {
				return fmt.Errorf("backgrounds: %w", err)
			}
		case "characters":
			if err := json.Unmarshal(raw, &a.Characters); err != nil {
				return fmt.Errorf("characters: %w", err)
			}
		default:
			var url string
			if err := json.Unmarshal(raw, &url); err != nil {
				// Nested tables other than the two known ones are not keys.
				continue
			}
			if a.Flat == nil {
				a.Flat = make(map[string]string)
			}
			a.Flat[key] = url
		}
	}
	return nil
}

func (a Assets) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(a.Flat)+2)
	for key, url := range a.Flat {
		out[key] = url
	}
	if len(a.Backgrounds) > 0 {
		out["backgrounds"] = a.Backgrounds
	}
	if len(a.Characters) > 0 {
		out["characters"] = a.Characters
	}
	return json.Marshal(out)
}
