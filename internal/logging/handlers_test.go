package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestTeeCollapses(t *testing.T) {
	if h := tee(nil, nil); h != slog.DiscardHandler {
		t.Fatalf("tee of nothing = %T, want the discard handler", h)
	}
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := tee(nil, inner); h != inner {
		t.Fatal("a single handler should be returned unwrapped")
	}
}

func TestTeeRespectsEachLevel(t *testing.T) {
	var console, file bytes.Buffer
	h := tee(
		slog.NewTextHandler(&console, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	if !h.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should be enabled when any member accepts the level")
	}

	logger := slog.New(h).With(String(FieldStage, "composite"))
	logger.Debug("probe finished")
	logger.Warn("recording shorter than narration")

	if strings.Contains(console.String(), "probe finished") {
		t.Fatalf("warn-level member received a debug record: %s", console.String())
	}
	if !strings.Contains(console.String(), "recording shorter") || !strings.Contains(file.String(), "probe finished") {
		t.Fatalf("records not routed: console=%q file=%q", console.String(), file.String())
	}
	if !strings.Contains(file.String(), `"stage":"composite"`) {
		t.Fatalf("attrs not propagated: %s", file.String())
	}
}

func TestTeeWithGroup(t *testing.T) {
	var a, b bytes.Buffer
	logger := slog.New(tee(slog.NewJSONHandler(&a, nil), slog.NewJSONHandler(&b, nil))).WithGroup("timeline")
	logger.Info("planned", Int("cues", 3))
	for _, out := range []string{a.String(), b.String()} {
		if !strings.Contains(out, `"timeline":{"cues":3}`) {
			t.Fatalf("group missing: %s", out)
		}
	}
}

func TestLevelOverrideReplacesEarlierOverride(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quiet := WithLevelOverride(base, slog.LevelError).With(String(FieldStage, "captions"))
	loud := WithLevelOverride(quiet, slog.LevelDebug)

	quiet.Warn("suppressed")
	loud.Debug("cue timing")
	out := buf.String()
	if strings.Contains(out, "suppressed") {
		t.Fatalf("error floor let a warning through: %s", out)
	}
	if !strings.Contains(out, "cue timing") || !strings.Contains(out, `"stage":"captions"`) {
		t.Fatalf("replacement override lost the record or its attrs: %s", out)
	}
}

func TestJSONHandlerRenamesKeys(t *testing.T) {
	var buf bytes.Buffer
	slog.New(newJSONHandler(&buf, slog.LevelInfo, true)).Warn("drift", Int("cues", 2))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if line["level"] != "warn" || line["msg"] != "drift" {
		t.Fatalf("unexpected line %v", line)
	}
	ts, _ := line["ts"].(string)
	if !strings.HasSuffix(ts, "Z") {
		t.Fatalf("ts = %q, want a UTC timestamp", ts)
	}
	if src, _ := line["source"].(string); !strings.HasPrefix(src, "handlers_test.go:") {
		t.Fatalf("source = %v", line["source"])
	}
}

func TestConsoleHidesRepeatedInfoFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelInfo, false)).With(String(FieldProduct, "launchpad"))

	logger.Info("chunk synthesized", Int("chunks", 3), Int("attempts", 1))
	logger.Info("chunk synthesized", Int("chunks", 3), Int("attempts", 2))
	logger.Warn("chunk retried", Int("chunks", 3))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	want := []string{
		"- Attempts: 1",
		"- Chunks: 3",
		"- Attempts: 2",
		"- Chunks: 3",
	}
	var got []string
	for _, l := range lines {
		if strings.HasPrefix(strings.TrimSpace(l), "- ") {
			got = append(got, strings.TrimSpace(l))
		}
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("fields = %q, want %q\n%s", got, want, buf.String())
	}
}

func TestConsoleDebugListsFlattenedGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, slog.LevelDebug, false)).WithGroup("probe")
	logger.Debug("stream found", slog.Group("video", Int("width", 1920)), String("codec", "h264"))

	out := buf.String()
	for _, want := range []string{"DEBUG", "    probe.video.width: 1920", "    probe.codec: h264"} {
		if !strings.Contains(out, want) {
			t.Fatalf("debug output missing %q:\n%s", want, out)
		}
	}
}

func TestHumanValue(t *testing.T) {
	cases := []struct {
		key  string
		val  slog.Value
		want string
	}{
		{"audio_bytes", slog.Int64Value(512), "512 B"},
		{"ducking_db", slog.Float64Value(-12), "-12.0 dB"},
		{"burned", slog.BoolValue(true), "yes"},
		{"stage_duration", slog.DurationValue(1500e6), "1.5s"},
		{"path", slog.StringValue("a b"), `"a b"`},
	}
	for _, tc := range cases {
		if got := humanValue(tc.key, tc.val); got != tc.want {
			t.Fatalf("humanValue(%s) = %q, want %q", tc.key, got, tc.want)
		}
	}
}
