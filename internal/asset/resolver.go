// Package asset maps scenario asset keys to image URLs.
//
// Keys are looked up in the scenario's own tables only. Anything that already
// looks like a URL or a path is used as is.
package asset

import (
	"log/slog"
	"sort"
	"strings"

	"novella/internal/logging"
	"novella/internal/scenario"
)

// Resolver looks up asset keys against the scenario held by a store. It reads
// the store on every call so a reloaded scenario takes effect immediately.
type Resolver struct {
	store  *scenario.Store
	logger *slog.Logger
}

// New builds a resolver over store.
func New(store *scenario.Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logging.NewComponentLogger(logger, "asset"),
	}
}

// IsLiteral reports whether key is already a URL or a path.
func IsLiteral(key string) bool {
	return strings.HasPrefix(key, "http://") ||
		strings.HasPrefix(key, "https://") ||
		strings.Contains(key, "/")
}

// Resolve maps key to a URL. ok is false when no table knows the key; a
// warning is logged and the caller should skip the effect.
func (r *Resolver) Resolve(key string) (string, bool) {
	return r.resolve("", key)
}

// ResolveFor resolves key with charID's tables consulted first. Sprite images
// on show directives and expression changes use this.
func (r *Resolver) ResolveFor(charID, key string) (string, bool) {
	return r.resolve(charID, key)
}

func (r *Resolver) resolve(charID, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	if IsLiteral(key) {
		return key, true
	}
	sc := r.store.Scenario()
	if sc == nil {
		r.warnMissing(key, charID)
		return "", false
	}
	if url, ok := lookup(sc, charID, key); ok {
		return url, true
	}
	r.warnMissing(key, charID)
	return "", false
}

func lookup(sc *scenario.Scenario, charID, key string) (string, bool) {
	if prefix, expr, found := strings.Cut(key, "."); found && prefix != "" && expr != "" {
		if url, ok := characterTables(sc, prefix, expr); ok {
			return url, true
		}
	}
	if charID != "" {
		if url, ok := characterTables(sc, charID, key); ok {
			return url, true
		}
	}
	for _, id := range castIDs(sc) {
		if url, ok := characterTables(sc, id, key); ok {
			return url, true
		}
	}
	if assets := sc.Meta.Assets; assets != nil {
		if url, ok := assets.Backgrounds[key]; ok && url != "" {
			return url, true
		}
	}
	if url, ok := sc.Meta.Backgrounds[key]; ok && url != "" {
		return url, true
	}
	if assets := sc.Meta.Assets; assets != nil {
		if url, ok := assets.Flat[key]; ok && url != "" {
			return url, true
		}
	}
	return "", false
}

// characterTables checks meta.assets.characters before the inline
// expressions table of the cast entry.
func characterTables(sc *scenario.Scenario, charID, expr string) (string, bool) {
	if assets := sc.Meta.Assets; assets != nil {
		if url, ok := assets.Characters[charID][expr]; ok && url != "" {
			return url, true
		}
	}
	if ch, ok := sc.Characters[charID]; ok {
		if url, ok := ch.Expressions[expr]; ok && url != "" {
			return url, true
		}
	}
	return "", false
}

// castIDs lists every character id with an expression table, sorted so bare
// key lookups are deterministic.
func castIDs(sc *scenario.Scenario) []string {
	seen := make(map[string]struct{})
	for id := range sc.Characters {
		seen[id] = struct{}{}
	}
	if sc.Meta.Assets != nil {
		for id := range sc.Meta.Assets.Characters {
			seen[id] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Resolver) warnMissing(key, charID string) {
	attrs := []logging.Attr{
		logging.String("asset_key", key),
		logging.String(logging.FieldErrorHint, "add the key to meta.assets or the character's expressions"),
		logging.String(logging.FieldImpact, "effect skipped"),
	}
	if charID != "" {
		attrs = append(attrs, logging.String("character", charID))
	}
	logging.WarnWithContext(r.logger, "asset key not found", "asset_missing", attrs...)
}
