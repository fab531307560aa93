package playback

import "errors"

var (
	// ErrNoScenario means the store holds nothing to play.
	ErrNoScenario = errors.New("no scenario loaded")
	// ErrNotStarted means an input arrived before Start.
	ErrNotStarted = errors.New("playback not started")
	// ErrNotAwaitingAdvance means Advance was called while the session was
	// not waiting for it. The input is ignored.
	ErrNotAwaitingAdvance = errors.New("not awaiting advance")
	// ErrNotAwaitingChoice means Choose was called with no choices presented.
	ErrNotAwaitingChoice = errors.New("not awaiting a choice")
	// ErrInvalidChoice means the choice index is out of range.
	ErrInvalidChoice = errors.New("invalid choice")
	// ErrNoSaves means the session was built without a save backend.
	ErrNoSaves = errors.New("saving is not configured")
)
