package logging

import (
	"context"
	"log/slog"
)

// contextHandler copies session and request ids from the record's context
// into the record, so InfoContext and friends tag lines without an explicit
// WithContext call. Keys already present on the logger are not repeated.
type contextHandler struct {
	base    slog.Handler
	present map[string]struct{}
}

func newContextHandler(base slog.Handler) slog.Handler {
	if base == nil {
		return slog.DiscardHandler
	}
	return &contextHandler{base: base}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.base.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, record slog.Record) error {
	for _, attr := range ContextFields(ctx) {
		if _, ok := h.present[attr.Key]; ok {
			continue
		}
		record.AddAttrs(attr)
	}
	return h.base.Handle(ctx, record)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	present := make(map[string]struct{}, len(h.present)+len(attrs))
	for key := range h.present {
		present[key] = struct{}{}
	}
	for _, attr := range attrs {
		present[attr.Key] = struct{}{}
	}
	return &contextHandler{base: h.base.WithAttrs(attrs), present: present}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	return &contextHandler{base: h.base.WithGroup(name), present: h.present}
}
