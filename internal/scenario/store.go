package scenario

// Store holds the scenario for a session. It never mutates the scenario; a
// reload swaps in a new one wholesale.
type Store struct {
	scenario *Scenario
}

// NewStore wraps a parsed scenario.
func NewStore(s *Scenario) *Store {
	return &Store{scenario: s}
}

// Replace swaps the held scenario.
func (st *Store) Replace(s *Scenario) {
	st.scenario = s
}

// Scenario returns the held scenario, which may be nil before the first load.
func (st *Store) Scenario() *Scenario {
	if st == nil {
		return nil
	}
	return st.scenario
}

// Scene returns the lines of a scene and whether the scene exists.
func (st *Store) Scene(id string) ([]Line, bool) {
	if st == nil || st.scenario == nil {
		return nil, false
	}
	lines, ok := st.scenario.Scenes[id]
	return lines, ok
}

// HasScene reports whether id names a scene.
func (st *Store) HasScene(id string) bool {
	_, ok := st.Scene(id)
	return ok
}

// Line returns one line of a scene.
func (st *Store) Line(scene string, index int) (Line, bool) {
	lines, ok := st.Scene(scene)
	if !ok || index < 0 || index >= len(lines) {
		return Line{}, false
	}
	return lines[index], true
}

// StartScene returns the scene playback begins in.
func (st *Store) StartScene() string {
	if st == nil || st.scenario == nil {
		return ""
	}
	return st.scenario.StartScene()
}

// SlotCount returns the number of character slots on stage.
func (st *Store) SlotCount() int {
	if st == nil || st.scenario == nil {
		return defaultSlots
	}
	return st.scenario.SlotCount()
}

// Character looks up a cast member.
func (st *Store) Character(id string) (Character, bool) {
	if st == nil || st.scenario == nil {
		return Character{}, false
	}
	ch, ok := st.scenario.Characters[id]
	return ch, ok
}
