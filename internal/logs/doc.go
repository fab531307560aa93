// Package logs reads the novella log file for the CLI.
//
// Last returns the trailing lines of the file with bounded memory, optionally
// filtered to lines containing a substring such as a session id. Follow polls
// for appended lines until its context ends and restarts from the top when the
// file is truncated.
package logs
