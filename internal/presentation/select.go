package presentation

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"novella/internal/playback"
)

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Select returns a Terminal when w is a terminal and a Plain writer otherwise.
func Select(w io.Writer) playback.Port {
	if IsTerminal(w) {
		return NewTerminal(w, TerminalOptions{Color: true})
	}
	return NewPlain(w)
}
