package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// jsonTimeLayout is RFC 3339 with millisecond precision, always in UTC.
const jsonTimeLayout = "2006-01-02T15:04:05.000Z07:00"

func newJSONHandler(w io.Writer, level slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   addSource,
		ReplaceAttr: jsonAttr,
	})
}

// jsonAttr renames the built-in keys and flattens source locations to
// file:line. Nested group members pass through untouched.
func jsonAttr(groups []string, a slog.Attr) slog.Attr {
	if len(groups) > 0 {
		return a
	}
	switch a.Key {
	case slog.TimeKey:
		a.Key = "ts"
		if a.Value.Kind() == slog.KindTime {
			a.Value = slog.StringValue(a.Value.Time().UTC().Format(jsonTimeLayout))
		}
	case slog.LevelKey:
		a.Value = slog.StringValue(strings.ToLower(a.Value.String()))
	case slog.SourceKey:
		if src, ok := a.Value.Any().(*slog.Source); ok && src != nil {
			a.Value = slog.StringValue(filepath.Base(src.File) + ":" + strconv.Itoa(src.Line))
		}
	}
	return a
}

// teeHandler sends each record to every member that accepts its level.
type teeHandler []slog.Handler

func tee(handlers ...slog.Handler) slog.Handler {
	var live teeHandler
	for _, h := range handlers {
		if h != nil {
			live = append(live, h)
		}
	}
	switch len(live) {
	case 0:
		return slog.DiscardHandler
	case 1:
		return live[0]
	}
	return live
}

func (t teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range t {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range t {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	return t.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t teeHandler) each(fn func(slog.Handler) slog.Handler) teeHandler {
	next := make(teeHandler, len(t))
	for i, h := range t {
		next[i] = fn(h)
	}
	return next
}

// floorHandler drops records below floor before they reach the wrapped
// handler, which keeps its own level as well.
type floorHandler struct {
	inner slog.Handler
	floor slog.Level
}

func (f floorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= f.floor && f.inner.Enabled(ctx, level)
}

func (f floorHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level < f.floor {
		return nil
	}
	return f.inner.Handle(ctx, r)
}

func (f floorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return floorHandler{inner: f.inner.WithAttrs(attrs), floor: f.floor}
}

func (f floorHandler) WithGroup(name string) slog.Handler {
	return floorHandler{inner: f.inner.WithGroup(name), floor: f.floor}
}

// WithLevelOverride returns a logger that ignores records below level. An
// earlier override on the same logger is replaced rather than stacked.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	inner := logger.Handler()
	if prev, ok := inner.(floorHandler); ok {
		inner = prev.inner
	}
	return slog.New(floorHandler{inner: inner, floor: level})
}

// ParseStageLevels maps stage names to the levels configured for them.
func ParseStageLevels(overrides map[string]string) map[string]slog.Level {
	if len(overrides) == 0 {
		return nil
	}
	levels := make(map[string]slog.Level, len(overrides))
	for stage, name := range overrides {
		levels[stage] = ParseLevel(name)
	}
	return levels
}

// timestampLayout is the console header's local wall-clock format.
const timestampLayout = "2006-01-02 15:04:05"

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		ts = time.Now()
	}
	return ts.Local().Format(timestampLayout)
}
