// Package main hosts the novella CLI.
//
// The Cobra command tree plays scenarios in the terminal, serves them over
// HTTP, and offers authoring helpers: validation, scene listings, asset key
// resolution and save slot maintenance. Configuration and logging are resolved
// once per invocation in commandContext so subcommands only deal with their
// own flags and output.
package main
