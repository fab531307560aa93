// Package scenario models the JSON story graph a playback session walks.
//
// A Scenario holds metadata (start scene, slot layout, asset key tables,
// default affection), the cast of characters with their expression images,
// and the scenes: named, ordered sequences of Lines. Lines and Choices are
// plain structs with explicit optional fields; the authoring aliases of the
// wire format (speaker/char, expression/expressions, affection/aff, ex) are
// folded into them at decode time and written back in canonical form.
//
// Parse rejects documents without meta or scenes. Everything else that can go
// wrong with a scenario (dangling transitions, lines with no content, unknown
// speakers) is reported by Validate as a warning: playback treats those as
// recoverable data errors rather than refusing to start.
package scenario
