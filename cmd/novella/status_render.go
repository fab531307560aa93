package main

import (
	"fmt"
	"io"

	"novella/internal/presentation"
	"novella/internal/scenario"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 12

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	status := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		status += " " + message
	}
	line := fmt.Sprintf("%-*s %s", statusLabelWidth, label+":", status)
	if colorize {
		return statusKindColor(kind) + line + ansiReset
	}
	return line
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

// summarizeIssues reports the overall validation verdict.
func summarizeIssues(issues []scenario.Issue) (statusKind, string) {
	var errs, warns int
	for _, issue := range issues {
		if issue.Severity == scenario.SeverityError {
			errs++
		} else {
			warns++
		}
	}
	switch {
	case errs > 0:
		return statusError, fmt.Sprintf("%d error(s), %d warning(s)", errs, warns)
	case warns > 0:
		return statusWarn, fmt.Sprintf("%d warning(s)", warns)
	default:
		return statusOK, "no issues"
	}
}

func shouldColorize(w io.Writer) bool {
	return presentation.IsTerminal(w)
}
