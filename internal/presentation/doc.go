// Package presentation implements playback.Port for the front ends: an
// interactive terminal typewriter, a plain fallback for pipes and files, and a
// recorder that turns every call into a serializable Command for the HTTP API
// and tests.
package presentation
