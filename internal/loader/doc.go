// Package loader finds and parses the scenario a session plays.
//
// A candidate location (a file path or an http(s) URL) is tried first. When
// it fails the scenario index is consulted and its first entry is tried.
// When that fails too, the scenario bundled with the binary is used if the
// configuration allows it. Every document is validated; a scenario with
// validation errors counts as a failed load.
package loader
