package playback

import "fmt"

// State is the playback state.
type State uint8

const (
	Idle State = iota
	Presenting
	AwaitingAdvance
	AwaitingChoice
	Finished
)

var stateNames = [...]string{
	Idle:            "idle",
	Presenting:      "presenting",
	AwaitingAdvance: "awaiting_advance",
	AwaitingChoice:  "awaiting_choice",
	Finished:        "finished",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", s)
}

// MarshalText renders the state name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown playback state %q", text)
}

// Position is a line in the scenario. Index may equal the scene length, which
// means the scene is exhausted.
type Position struct {
	Scene string `json:"scene"`
	Index int    `json:"index"`
}

func (p Position) String() string {
	return fmt.Sprintf("%s#%d", p.Scene, p.Index)
}

// DiagnosticKind classifies a recoverable data error.
type DiagnosticKind string

const (
	DiagMissingScene  DiagnosticKind = "missing_scene"
	DiagMissingAsset  DiagnosticKind = "missing_asset"
	DiagEmptyScene    DiagnosticKind = "empty_scene"
	DiagBadIndex      DiagnosticKind = "bad_index"
	DiagAutoStepLimit DiagnosticKind = "auto_step_limit"
	DiagNoFreeSlot    DiagnosticKind = "no_free_slot"
)

// Diagnostic is a recoverable data error met during playback.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Scene   string         `json:"scene"`
	Index   int            `json:"index"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %s#%d: %s", d.Kind, d.Scene, d.Index, d.Message)
}

// Slot describes one character position on stage.
type Slot struct {
	Index   int    `json:"index"`
	CharID  string `json:"char_id,omitempty"`
	Image   string `json:"image,omitempty"`
	Visible bool   `json:"visible"`
}
