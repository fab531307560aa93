package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/jedib0t/go-pretty/v6/text"
)

// consoleHandler writes one human-oriented line per record:
//
//	15:04:05.000 INFO  playback: [3f2a9c1e intro#2] line presented speaker=Haru
//
// The component, session and scenario position are lifted out of the
// key=value tail into the line header.
type consoleHandler struct {
	out    *syncWriter
	level  slog.Leveler
	source bool
	color  bool
	prefix string
	bound  []field
}

type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

type field struct {
	key string
	val slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, source, color bool) *consoleHandler {
	return &consoleHandler{out: &syncWriter{w: w}, level: level, source: source, color: color}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	fields := make([]field, 0, len(h.bound)+record.NumAttrs())
	fields = append(fields, h.bound...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendField(fields, h.prefix, attr)
		return true
	})

	var hdr header
	rest := fields[:0:0]
	for _, f := range fields {
		if !hdr.take(f) {
			rest = append(rest, f)
		}
	}

	when := record.Time
	if when.IsZero() {
		when = time.Now()
	}

	var b strings.Builder
	b.WriteString(when.Local().Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(h.levelText(record.Level))
	b.WriteByte(' ')
	if hdr.component != "" {
		b.WriteString(hdr.component)
		b.WriteString(": ")
	}
	if subject := hdr.subject(); subject != "" {
		b.WriteString("[" + subject + "] ")
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	b.WriteString(msg)
	if h.source {
		if src := record.Source(); src != nil && src.File != "" {
			fmt.Fprintf(&b, " (%s:%d)", filepath.Base(src.File), src.Line)
		}
	}
	for _, f := range rest {
		b.WriteByte(' ')
		b.WriteString(f.key)
		b.WriteByte('=')
		b.WriteString(quoteIfNeeded(render(f.val)))
	}
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.bound = make([]field, 0, len(h.bound)+len(attrs))
	next.bound = append(next.bound, h.bound...)
	for _, attr := range attrs {
		next.bound = appendField(next.bound, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

var levelColors = map[slog.Level]text.Colors{
	slog.LevelDebug: {text.Faint},
	slog.LevelInfo:  {text.FgGreen},
	slog.LevelWarn:  {text.FgYellow, text.Bold},
	slog.LevelError: {text.FgRed, text.Bold},
}

func (h *consoleHandler) levelText(level slog.Level) string {
	var base slog.Level
	switch {
	case level >= slog.LevelError:
		base = slog.LevelError
	case level >= slog.LevelWarn:
		base = slog.LevelWarn
	case level >= slog.LevelInfo:
		base = slog.LevelInfo
	default:
		base = slog.LevelDebug
	}
	label := fmt.Sprintf("%-5s", base.String())
	if !h.color {
		return label
	}
	return levelColors[base].Sprint(label)
}

// header collects the fields shown before the message.
type header struct {
	component, session, scene, index string
}

func (hd *header) take(f field) bool {
	var dst *string
	switch f.key {
	case FieldComponent:
		dst = &hd.component
	case FieldSessionID:
		dst = &hd.session
	case FieldScene:
		dst = &hd.scene
	case FieldIndex:
		dst = &hd.index
	default:
		return false
	}
	// The outermost component and session win; position follows the record.
	if *dst == "" || f.key == FieldScene || f.key == FieldIndex {
		*dst = render(f.val)
	}
	return true
}

// subject renders "<session> <scene>#<index>" with the session id cut to its
// first block.
func (hd header) subject() string {
	session, _, _ := strings.Cut(hd.session, "-")
	location := hd.scene
	if location != "" && hd.index != "" {
		location += "#" + hd.index
	}
	return strings.TrimSpace(session + " " + location)
}

func appendField(dst []field, prefix string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	val := attr.Value.Resolve()
	if val.Kind() == slog.KindGroup {
		inner := prefix
		if attr.Key != "" {
			inner = prefix + attr.Key + "."
		}
		for _, member := range val.Group() {
			dst = appendField(dst, inner, member)
		}
		return dst
	}
	return append(dst, field{key: prefix + attr.Key, val: val})
}

func render(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '=' || r == '"' || !unicode.IsPrint(r)
	}) {
		return strconv.Quote(s)
	}
	return s
}
