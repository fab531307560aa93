// Package affection tracks per-character relationship scores.
//
// A Ledger maps character identifiers to unbounded signed integers. Scenario
// lines and choices mutate it through a declarative Spec that can overwrite
// entries (set), accumulate into them (delta), or carry bare numeric entries
// that are treated as deltas for terse authoring. Values are coerced the way
// scenario authors expect: numbers truncate toward zero, numeric strings are
// parsed, and anything else counts as zero.
//
// The ledger is not safe for concurrent use; the playback session that owns
// it is its only writer.
package affection
