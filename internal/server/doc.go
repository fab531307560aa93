// Package server exposes playback sessions over a small JSON API.
//
// Each session pairs a playback.Session with a presentation.Recorder. A
// request runs one input against the session under the session's mutex and
// answers with a Frame: the resulting state plus the presentation commands
// recorded while handling it. Idle sessions are evicted after the configured
// TTL.
package server
