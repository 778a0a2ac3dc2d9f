package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
)

// consoleSink is shared by a console handler and every handler derived from
// it through With or WithGroup.
type consoleSink struct {
	mu sync.Mutex
	w  io.Writer
	// shown remembers the last value printed per subject and label so
	// repeated info fields are not echoed line after line.
	shown map[string]map[string]string
}

// consoleHandler renders records as a one-line header followed by indented
// fields. Info and above list curated fields; debug lists everything.
type consoleHandler struct {
	sink      *consoleSink
	level     slog.Leveler
	addSource bool
	prefix    string
	fields    []field
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource bool) *consoleHandler {
	return &consoleHandler{
		sink:      &consoleSink{w: w, shown: make(map[string]map[string]string)},
		level:     level,
		addSource: addSource,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.fields = slices.Clone(h.fields)
	for _, a := range attrs {
		next.fields = appendField(next.fields, h.prefix, a)
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

func (h *consoleHandler) Handle(_ context.Context, r slog.Record) error {
	fields := slices.Clone(h.fields)
	r.Attrs(func(a slog.Attr) bool {
		fields = appendField(fields, h.prefix, a)
		return true
	})
	fields = lastValueWins(fields)

	head := header{at: r.Time, level: r.Level, message: strings.TrimSpace(r.Message)}
	if h.addSource {
		head.source = r.Source()
	}
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			head.component = plainString(f.value)
		case FieldProduct:
			head.product = plainString(f.value)
		case FieldStage:
			head.stage = plainString(f.value)
		}
	}

	var buf bytes.Buffer
	head.write(&buf)

	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	if r.Level < slog.LevelInfo {
		for _, f := range fields {
			fmt.Fprintf(&buf, "    %s: %s\n", f.key, formatValue(f.value))
		}
	} else {
		for _, line := range h.sink.fresh(head.subjectKey(), r.Level, labelFields(fields)) {
			fmt.Fprintf(&buf, "    - %s: %s\n", line.label, line.value)
		}
	}
	_, err := h.sink.w.Write(buf.Bytes())
	return err
}

// fresh drops info lines whose value matches the last one printed for the
// same subject. Warnings and errors always print in full.
func (s *consoleSink) fresh(subject string, level slog.Level, lines []labeled) []labeled {
	if subject == "" {
		return lines
	}
	memo := s.shown[subject]
	if memo == nil {
		memo = make(map[string]string)
		s.shown[subject] = memo
	}
	kept := lines[:0]
	for _, l := range lines {
		if level <= slog.LevelInfo && memo[l.label] == l.value {
			continue
		}
		memo[l.label] = l.value
		kept = append(kept, l)
	}
	return kept
}

type header struct {
	at                        time.Time
	level                     slog.Level
	component, product, stage string
	message                   string
	source                    *slog.Source
}

func (hd header) write(buf *bytes.Buffer) {
	buf.WriteString(formatTimestamp(hd.at))
	buf.WriteByte(' ')
	buf.WriteString(levelName(hd.level))
	if hd.component != "" {
		buf.WriteString(" [" + hd.component + "]")
	}
	if subject := hd.subject(); subject != "" {
		buf.WriteString(" " + subject)
	}
	message := hd.message
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(" – " + message)
	if hd.source != nil {
		buf.WriteString(" [" + filepath.Base(hd.source.File) + ":" + strconv.Itoa(hd.source.Line) + "]")
	}
	buf.WriteByte('\n')
}

// subject reads "product · stage", or whichever half is known.
func (hd header) subject() string {
	switch {
	case hd.product != "" && hd.stage != "":
		return hd.product + " · " + hd.stage
	case hd.product != "":
		return hd.product
	default:
		return hd.stage
	}
}

func (hd header) subjectKey() string {
	var parts []string
	for _, p := range []string{hd.component, hd.product, hd.stage} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "/")
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}

// appendField flattens a into dst, joining group names with dots.
func appendField(dst []field, prefix string, a slog.Attr) []field {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		inner := prefix
		if a.Key != "" {
			inner += a.Key + "."
		}
		for _, member := range a.Value.Group() {
			dst = appendField(dst, inner, member)
		}
		return dst
	}
	if a.Key == "" {
		return dst
	}
	return append(dst, field{key: prefix + a.Key, value: a.Value})
}

// lastValueWins collapses repeated keys, keeping the first position and the
// last value.
func lastValueWins(fields []field) []field {
	at := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, ok := at[f.key]; ok {
			out[i].value = f.value
			continue
		}
		at[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

type labeled struct {
	label string
	value string
}

// leadingKeys are listed first at info level, in this order. Anything else
// follows in the order it was logged.
var leadingKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldErrorKind,
	"error",
	FieldErrorHint,
	FieldImpact,
	"reason",
	"status",
	"attempts",
	"stage_duration",
	"run_duration",
	"output_duration",
	"narration_duration",
	"video_duration",
	"video_conform",
	"ducking_db",
	"background_gain_db",
	"cues",
	"words",
	"chunks",
	"audio_bytes",
	"size_bytes",
	"final_path",
	"awaiting",
	"warnings",
}

var fieldLabels = map[string]string{
	FieldAlert:           "Alert",
	FieldEventType:       "Event",
	FieldErrorKind:       "Error Kind",
	FieldErrorHint:       "Hint",
	"stage_duration":     "Duration",
	"run_duration":       "Duration",
	"output_duration":    "Output Length",
	"narration_duration": "Narration",
	"video_duration":     "Recording",
	"video_conform":      "Conform",
	"ducking_db":         "Ducking",
	"background_gain_db": "Music Gain",
	"final_path":         "Output",
}

// labelFields orders the fields worth showing at info level and renders
// each with a human label and unit-aware value.
func labelFields(fields []field) []labeled {
	rank := func(key string) int {
		if i := slices.Index(leadingKeys, key); i >= 0 {
			return i
		}
		return len(leadingKeys)
	}
	shown := make([]field, 0, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent, FieldProduct, FieldStage:
			continue
		}
		shown = append(shown, f)
	}
	slices.SortStableFunc(shown, func(a, b field) int { return rank(a.key) - rank(b.key) })

	out := make([]labeled, len(shown))
	for i, f := range shown {
		out[i] = labeled{label: labelFor(f.key), value: humanValue(f.key, f.value)}
	}
	return out
}

func labelFor(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	words := strings.FieldsFunc(key, func(r rune) bool { return r == '_' || r == '-' || r == '.' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

// humanValue formats sizes, durations, decibels and booleans for people;
// anything else falls back to formatValue.
func humanValue(key string, v slog.Value) string {
	switch v.Kind() {
	case slog.KindInt64:
		if n := v.Int64(); isSizeKey(key) && n >= 0 {
			return humanize.IBytes(uint64(n))
		}
	case slog.KindUint64:
		if isSizeKey(key) {
			return humanize.IBytes(v.Uint64())
		}
	case slog.KindDuration:
		return roundDuration(v.Duration())
	case slog.KindFloat64:
		if strings.HasSuffix(key, "_db") {
			return strconv.FormatFloat(v.Float64(), 'f', 1, 64) + " dB"
		}
	case slog.KindBool:
		if v.Bool() {
			return "yes"
		}
		return "no"
	}
	out := formatValue(v)
	if key == "error" {
		out = clip(strings.TrimSpace(out), 200)
	}
	return out
}

func isSizeKey(key string) bool {
	return key == "size" || strings.HasSuffix(key, "_bytes")
}

func roundDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return strconv.FormatFloat(d.Seconds(), 'f', 1, 64) + "s"
	}
	return d.Round(time.Second).String()
}

func clip(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "…"
}

// plainString is the unquoted text of v.
func plainString(v slog.Value) string {
	if v.Kind() == slog.KindAny {
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
	}
	if v.Kind() == slog.KindString {
		return v.String()
	}
	return strings.Trim(formatValue(v), `"`)
}

// formatValue renders v in logfmt style, quoting text that contains spaces,
// quotes or '='.
func formatValue(v slog.Value) string {
	var s string
	switch v.Kind() {
	case slog.KindTime:
		return formatTimestamp(v.Time())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			s = err.Error()
		} else {
			s = fmt.Sprint(v.Any())
		}
	default:
		s = v.String()
	}
	if needsQuotes(s) {
		return strconv.Quote(s)
	}
	return s
}

func needsQuotes(s string) bool {
	return s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' })
}
