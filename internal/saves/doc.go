// Package saves persists playback positions.
//
// A Record is the point-in-time snapshot of a session: scene id, line index,
// wall clock timestamp and the affection ledger. Records live under named
// slots in one of two backends: a SQLite database (the default) or a
// directory of JSON files guarded by a file lock. Open picks the backend from
// configuration.
//
// Decode is strict about the parts playback depends on: a record without a
// scene id or with a negative index is ErrCorrupt. Whether the scene still
// exists in the loaded scenario is checked by the playback session, not here.
package saves
