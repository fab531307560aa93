package affection

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Spec is a declarative ledger mutation attached to a line or choice.
//
// JSON shape: {"set": {id: n}, "delta": {id: n}, id: n, ...}. Top-level
// entries other than set/delta are bare deltas.
type Spec struct {
	Set   map[string]int
	Delta map[string]int
	Bare  map[string]int
}

// Empty reports whether the spec would not touch the ledger.
func (s Spec) Empty() bool {
	return len(s.Set) == 0 && len(s.Delta) == 0 && len(s.Bare) == 0
}

func (s *Spec) UnmarshalJSON(data []byte) error {
	*s = Spec{}
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, raw := range fields {
		switch key {
		case "set":
			s.Set = decodeScores(raw)
		case "delta":
			s.Delta = decodeScores(raw)
		default:
			if s.Bare == nil {
				s.Bare = make(map[string]int)
			}
			s.Bare[key] = Coerce(raw)
		}
	}
	return nil
}

func (s Spec) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Bare)+2)
	for key, value := range s.Bare {
		out[key] = value
	}
	if len(s.Set) > 0 {
		out["set"] = s.Set
	}
	if len(s.Delta) > 0 {
		out["delta"] = s.Delta
	}
	return json.Marshal(out)
}

// decodeScores reads an object of scores. A set/delta value that is not an
// object contributes nothing.
func decodeScores(raw json.RawMessage) map[string]int {
	var values map[string]json.RawMessage
	if err := json.Unmarshal(raw, &values); err != nil || len(values) == 0 {
		return nil
	}
	scores := make(map[string]int, len(values))
	for key, value := range values {
		scores[key] = Coerce(value)
	}
	return scores
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
