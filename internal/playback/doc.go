// Package playback runs a scenario as an explicit state machine.
//
// A Session owns the current position, the presentation state and the
// references to the scenario store and affection ledger. It is driven from a
// single goroutine: input arrives through Advance, Choose, Tap and Restart,
// and presentation completions arrive through PresentationDone once the
// channel returned by Pending fires. Nothing in the session blocks except
// Wait, which exists for drivers that have nothing else to select on.
//
// Rendering is delegated to a Port. Every Port call returns a Handle that can
// be canceled; the session cancels in-flight handles on restart, reload and
// load so a superseded typewriter never completes into the wrong line.
//
// Data problems in the scenario (unknown scenes, missing assets, effect-only
// cycles) never surface as errors. They are recorded as Diagnostics, logged,
// and resolved to a safe state, usually Finished. Errors are reserved for
// misuse (input in the wrong state) and persistence failures.
package playback
