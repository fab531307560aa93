// Package logging builds the slog loggers novella writes with.
//
// Console output puts the component, session and scene position in a short
// header ahead of the message; JSON output is one object per line for log
// shippers. Context helpers carry session and request ids so InfoContext and
// friends tag records without extra arguments, and WarnWithContext keeps every
// warning filterable by event type.
package logging
