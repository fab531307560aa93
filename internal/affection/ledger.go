package affection

import "sort"

// Change records one ledger mutation.
type Change struct {
	ID   string
	From int
	To   int
}

// Ledger maps character ids to scores.
type Ledger struct {
	scores map[string]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{scores: make(map[string]int)}
}

// Initialize clears the ledger and seeds it from tiers in priority order. An
// entry from an earlier tier is never overwritten by a later one.
func (l *Ledger) Initialize(tiers ...map[string]int) {
	l.scores = make(map[string]int)
	for _, tier := range tiers {
		for id, score := range tier {
			if _, exists := l.scores[id]; exists {
				continue
			}
			l.scores[id] = score
		}
	}
}

// Apply mutates the ledger according to spec: set entries first, then delta
// entries, then bare deltas. Unknown ids are created on first mutation.
func (l *Ledger) Apply(spec Spec) []Change {
	if l.scores == nil {
		l.scores = make(map[string]int)
	}
	var changes []Change
	for _, id := range sortedKeys(spec.Set) {
		from := l.scores[id]
		l.scores[id] = spec.Set[id]
		changes = append(changes, Change{ID: id, From: from, To: spec.Set[id]})
	}
	for _, deltas := range []map[string]int{spec.Delta, spec.Bare} {
		for _, id := range sortedKeys(deltas) {
			from := l.scores[id]
			l.scores[id] = from + deltas[id]
			changes = append(changes, Change{ID: id, From: from, To: l.scores[id]})
		}
	}
	return changes
}

// Get returns the score for id and whether the ledger has an entry for it.
func (l *Ledger) Get(id string) (int, bool) {
	score, ok := l.scores[id]
	return score, ok
}

// Snapshot returns a copy of every entry.
func (l *Ledger) Snapshot() map[string]int {
	out := make(map[string]int, len(l.scores))
	for id, score := range l.scores {
		out[id] = score
	}
	return out
}

// Restore replaces the ledger contents with a copy of scores.
func (l *Ledger) Restore(scores map[string]int) {
	l.scores = make(map[string]int, len(scores))
	for id, score := range scores {
		l.scores[id] = score
	}
}

// Keys returns the ids in the ledger in sorted order.
func (l *Ledger) Keys() []string {
	keys := make([]string, 0, len(l.scores))
	for id := range l.scores {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

// Len reports how many ids the ledger holds.
func (l *Ledger) Len() int {
	return len(l.scores)
}
