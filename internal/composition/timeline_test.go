package composition

import (
	"errors"
	"strings"
	"testing"
	"time"

	"demoforge/internal/media/ffprobe"
	"demoforge/internal/services"
)

func video(d time.Duration) ffprobe.Info {
	return ffprobe.Info{Path: "rec.webm", Duration: d, HasVideo: true}
}

func narration(d time.Duration) ffprobe.Info {
	return ffprobe.Info{Path: "narration.mp3", Duration: d, HasAudio: true}
}

func TestBuildTimelineDurationLaw(t *testing.T) {
	tests := []struct {
		name     string
		video    time.Duration
		conform  VideoConform
		hold     time.Duration
		warnings int
	}{
		{name: "longer recording is trimmed", video: 200 * time.Second, conform: ConformTrim, warnings: 1},
		{name: "shorter recording holds last frame", video: 150 * time.Second, conform: ConformHold, hold: 30 * time.Second, warnings: 1},
		{name: "equal recording unchanged", video: 180 * time.Second, conform: ConformExact},
		{name: "drift inside tolerance", video: 181 * time.Second, conform: ConformTrim},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl, warnings, err := BuildTimeline(Sources{Video: video(tt.video), Narration: narration(180 * time.Second)}, DefaultSettings())
			if err != nil {
				t.Fatalf("BuildTimeline: %v", err)
			}
			if tl.OutputDuration != 180*time.Second {
				t.Fatalf("output duration = %v, want 180s", tl.OutputDuration)
			}
			if tl.Conform != tt.conform || tl.Hold != tt.hold {
				t.Fatalf("conform = %s hold = %v, want %s %v", tl.Conform, tl.Hold, tt.conform, tt.hold)
			}
			if len(warnings) != tt.warnings {
				t.Fatalf("warnings = %v", warnings)
			}
			if err := tl.Validate(); err != nil {
				t.Fatalf("Validate: %v", err)
			}
		})
	}
}

func TestBuildTimelineBackgroundGain(t *testing.T) {
	bg := ffprobe.Info{Path: "music.mp3", Duration: 30 * time.Second, HasAudio: true}
	settings := DefaultSettings()
	settings.DuckingDB = 18

	tl, _, err := BuildTimeline(Sources{Video: video(10 * time.Second), Narration: narration(10 * time.Second), Background: &bg}, settings)
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	if tl.Background == nil || tl.Background.GainDB != -18 {
		t.Fatalf("background = %+v", tl.Background)
	}

	narr, loud := -24.0, -12.0
	tl, _, err = BuildTimeline(Sources{
		Video: video(10 * time.Second), Narration: narration(10 * time.Second), Background: &bg,
		NarrationMeanDB: &narr, BackgroundMeanDB: &loud,
	}, settings)
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	// Background must land 18 dB under -24 dBFS narration: -12 + gain <= -42.
	if tl.Background.GainDB != -30 {
		t.Fatalf("level matched gain = %v, want -30", tl.Background.GainDB)
	}

	quiet := -50.0
	tl, _, _ = BuildTimeline(Sources{
		Video: video(10 * time.Second), Narration: narration(10 * time.Second), Background: &bg,
		NarrationMeanDB: &narr, BackgroundMeanDB: &quiet,
	}, settings)
	if tl.Background.GainDB != -18 {
		t.Fatalf("quiet background gain = %v, want configured -18", tl.Background.GainDB)
	}
}

func TestBuildTimelineCaptionOverrunWarns(t *testing.T) {
	captions := &CaptionTrack{Path: "c.ass", Format: CaptionStyled, LastCueEnd: 15 * time.Second}
	_, warnings, err := BuildTimeline(Sources{Video: video(10 * time.Second), Narration: narration(10 * time.Second), Captions: captions}, DefaultSettings())
	if err != nil {
		t.Fatalf("BuildTimeline: %v", err)
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "captions run 5.0s") {
		t.Fatalf("warnings = %v", warnings)
	}
	captions.LastCueEnd = 11 * time.Second
	_, warnings, _ = BuildTimeline(Sources{Video: video(10 * time.Second), Narration: narration(10 * time.Second), Captions: captions}, DefaultSettings())
	if len(warnings) != 0 {
		t.Fatalf("overrun inside tolerance should not warn: %v", warnings)
	}
}

func TestBuildTimelineRejectsUnusableInputs(t *testing.T) {
	silent := ffprobe.Info{Path: "n.mp3", Duration: time.Second}
	cases := map[string]Sources{
		"narration without audio": {Video: video(time.Second), Narration: silent},
		"zero narration":          {Video: video(time.Second), Narration: narration(0)},
		"recording without video": {Video: ffprobe.Info{Path: "r", Duration: time.Second}, Narration: narration(time.Second)},
		"background without audio": {Video: video(time.Second), Narration: narration(time.Second),
			Background: &ffprobe.Info{Path: "bg", Duration: time.Second}},
	}
	for name, src := range cases {
		_, _, err := BuildTimeline(src, DefaultSettings())
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if !errors.Is(err, services.ErrComposition) {
			t.Fatalf("%s: expected composition error, got %v", name, err)
		}
		if services.Classify(err) != services.KindComposition {
			t.Fatalf("%s: classify = %s", name, services.Classify(err))
		}
	}
}
