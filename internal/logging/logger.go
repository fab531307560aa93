package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"novella/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level       string
	Format      string
	OutputPaths []string
	// Writer, when set, receives output in addition to OutputPaths.
	Writer      io.Writer
	Development bool
	// Color enables ANSI level colors in console output.
	Color bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := parseLevel(opts.Level)
	levelVar := new(slog.LevelVar)
	levelVar.Set(level)

	paths := opts.OutputPaths
	if len(paths) == 0 && opts.Writer == nil {
		paths = []string{"stderr"}
	}
	sinks, err := openSinks(paths, opts.Writer)
	if err != nil {
		return nil, err
	}

	addSource := opts.Development || level <= slog.LevelDebug

	format := strings.ToLower(strings.TrimSpace(opts.Format))
	if format == "" {
		format = "console"
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = newJSONHandler(joinSinks(sinks), levelVar, addSource)
	case "console":
		// Colors only go to terminals; files stay plain.
		var colored, plain []sink
		for _, s := range sinks {
			if opts.Color && s.terminal {
				colored = append(colored, s)
			} else {
				plain = append(plain, s)
			}
		}
		var handlers []slog.Handler
		if len(colored) > 0 {
			handlers = append(handlers, newConsoleHandler(joinSinks(colored), levelVar, addSource, true))
		}
		if len(plain) > 0 {
			handlers = append(handlers, newConsoleHandler(joinSinks(plain), levelVar, addSource, false))
		}
		handler = newFanoutHandler(handlers...)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	return slog.New(newContextHandler(handler)), nil
}

// NewFromConfig creates a logger writing to stderr and <log_dir>/novella.log.
// Interactive play keeps stdout for the story itself.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{Level: "info", Format: "console"})
	}

	outputPaths := []string{"stderr"}
	if cfg.Paths.LogDir != "" {
		if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		outputPaths = append(outputPaths, filepath.Join(cfg.Paths.LogDir, "novella.log"))
	}

	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputPaths,
		Color:       true,
	})
}

// NewFileOnly creates a logger that writes only to <log_dir>/novella.log. The
// interactive player uses it so log lines do not interleave with the story.
func NewFileOnly(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil || cfg.Paths.LogDir == "" {
		return NewNop(), nil
	}
	if err := os.MkdirAll(cfg.Paths.LogDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure log directory: %w", err)
	}
	return New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{filepath.Join(cfg.Paths.LogDir, "novella.log")},
	})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type sink struct {
	w        io.Writer
	terminal bool
}

func openSinks(paths []string, extra io.Writer) ([]sink, error) {
	seen := map[string]struct{}{}
	var sinks []sink

	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}

		switch trimmed {
		case "stdout":
			sinks = append(sinks, sink{w: os.Stdout, terminal: isatty.IsTerminal(os.Stdout.Fd())})
		case "stderr":
			sinks = append(sinks, sink{w: os.Stderr, terminal: isatty.IsTerminal(os.Stderr.Fd())})
		default:
			if dir := filepath.Dir(trimmed); dir != "." && dir != "" {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return nil, fmt.Errorf("create log directory %s: %w", dir, err)
				}
			}
			file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o664)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", trimmed, err)
			}
			sinks = append(sinks, sink{w: file})
		}
	}
	if extra != nil {
		sinks = append(sinks, sink{w: extra})
	}
	if len(sinks) == 0 {
		sinks = append(sinks, sink{w: os.Stderr})
	}
	return sinks, nil
}

func joinSinks(sinks []sink) io.Writer {
	if len(sinks) == 1 {
		return sinks[0].w
	}
	writers := make([]io.Writer, len(sinks))
	for i, s := range sinks {
		writers[i] = s.w
	}
	return io.MultiWriter(writers...)
}
