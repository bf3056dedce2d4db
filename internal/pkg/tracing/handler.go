package tracing

import (
	"context"
	"log/slog"
)

// Handler is a slog.Handler that adds correlation_id and user_id from the
// tracing state of the record's context.
type Handler struct {
	next slog.Handler
}

// NewHandler wraps next.
func NewHandler(next slog.Handler) *Handler {
	return &Handler{next: next}
}

// Enabled reports whether next handles records at level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

// Handle adds tracing attributes and passes the record on.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	if tc := FromContext(ctx); tc != nil {
		r = r.Clone()
		r.AddAttrs(slog.String("correlation_id", tc.CorrelationID()))
		if uid := tc.UserID(); uid != "" {
			r.AddAttrs(slog.String("user_id", uid.String()))
		}
	}
	return h.next.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{next: h.next.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{next: h.next.WithGroup(name)}
}
