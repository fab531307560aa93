package saves

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"novella/internal/affection"
)

var (
	// ErrNotFound reports an empty slot.
	ErrNotFound = errors.New("save not found")
	// ErrCorrupt reports a record that cannot be applied.
	ErrCorrupt = errors.New("save data is corrupt")
	// ErrInvalidSlot reports a slot name that cannot be stored.
	ErrInvalidSlot = errors.New("invalid save slot")
)

// Record is the persisted snapshot of a playback session.
type Record struct {
	Scene     string         `json:"scene"`
	Index     int            `json:"index"`
	Timestamp int64          `json:"timestamp"` // unix milliseconds
	Affection map[string]int `json:"affection,omitempty"`
}

// NewRecord stamps a record with now.
func NewRecord(scene string, index int, scores map[string]int, now time.Time) Record {
	return Record{
		Scene:     scene,
		Index:     index,
		Timestamp: now.UnixMilli(),
		Affection: scores,
	}
}

// SavedAt returns the record timestamp as a time.
func (r Record) SavedAt() time.Time {
	return time.UnixMilli(r.Timestamp)
}

// Encode renders the record in its wire form.
func (r Record) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Decode parses a record. A missing index reads as 0; affection values are
// coerced the same way scenario scores are.
func Decode(data []byte) (Record, error) {
	var raw struct {
		Scene     *string                    `json:"scene"`
		Index     *float64                   `json:"index"`
		Timestamp float64                    `json:"timestamp"`
		Affection map[string]affection.Value `json:"affection"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if raw.Scene == nil || strings.TrimSpace(*raw.Scene) == "" {
		return Record{}, fmt.Errorf("%w: scene is missing", ErrCorrupt)
	}
	rec := Record{Scene: *raw.Scene}
	if raw.Index != nil {
		idx := *raw.Index
		if math.IsNaN(idx) || idx < 0 || idx != math.Trunc(idx) || idx > math.MaxInt32 {
			return Record{}, fmt.Errorf("%w: index %v is not a line position", ErrCorrupt, idx)
		}
		rec.Index = int(idx)
	}
	if !math.IsNaN(raw.Timestamp) && !math.IsInf(raw.Timestamp, 0) {
		rec.Timestamp = int64(raw.Timestamp)
	}
	if len(raw.Affection) > 0 {
		rec.Affection = make(map[string]int, len(raw.Affection))
		for id, v := range raw.Affection {
			rec.Affection[id] = int(v)
		}
	}
	return rec, nil
}

// Summary describes one stored slot.
type Summary struct {
	Slot      string
	SaveID    string
	Scene     string
	Index     int
	SavedAt   time.Time
	UpdatedAt time.Time
	// Err is set when the slot exists but its record does not decode.
	Err error
}

var slotPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,127}$`)

// CleanSlot trims a slot name and rejects names that are unsafe as file names.
func CleanSlot(slot string) (string, error) {
	slot = strings.TrimSpace(slot)
	if !slotPattern.MatchString(slot) || strings.Contains(slot, "..") {
		return "", fmt.Errorf("%w: %q", ErrInvalidSlot, slot)
	}
	return slot, nil
}
