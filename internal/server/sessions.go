package server

import (
	"sync"
	"time"

	"novella/internal/playback"
	"novella/internal/presentation"
)

// entry is one live session. mu serializes every request against it.
type entry struct {
	mu       sync.Mutex
	id       string
	title    string
	origin   string
	session  *playback.Session
	recorder *presentation.Recorder
	lastUsed time.Time
}

// registry holds live sessions keyed by id.
type registry struct {
	sessions sync.Map
}

func (r *registry) add(e *entry) {
	r.sessions.Store(e.id, e)
}

func (r *registry) get(id string) (*entry, bool) {
	v, ok := r.sessions.Load(id)
	if !ok {
		return nil, false
	}
	return v.(*entry), true
}

func (r *registry) remove(id string) bool {
	_, ok := r.sessions.LoadAndDelete(id)
	return ok
}

func (r *registry) count() int {
	n := 0
	r.sessions.Range(func(any, any) bool {
		n++
		return true
	})
	return n
}

// evict drops sessions idle since before cutoff and returns their ids.
// Sessions busy with a request are skipped.
func (r *registry) evict(cutoff time.Time) []string {
	var evicted []string
	r.sessions.Range(func(key, value any) bool {
		e := value.(*entry)
		if !e.mu.TryLock() {
			return true
		}
		idle := e.lastUsed.Before(cutoff)
		e.mu.Unlock()
		if idle && r.sessions.CompareAndDelete(key, value) {
			evicted = append(evicted, e.id)
		}
		return true
	})
	return evicted
}
