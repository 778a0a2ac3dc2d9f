package composition

import (
	"errors"
	"fmt"
	"math"
	"time"

	"demoforge/internal/media/ffprobe"
)

// Track is a probed media input.
type Track struct {
	Path     string
	Duration time.Duration
}

// BackgroundTrack is looped music mixed under the narration.
type BackgroundTrack struct {
	Track
	GainDB float64
}

// CaptionFormat selects the burn-in filter.
type CaptionFormat string

const (
	CaptionSRT    CaptionFormat = "srt"
	CaptionStyled CaptionFormat = "styled"
)

// CaptionTrack is a timed-text file overlaid on the video.
type CaptionTrack struct {
	Path       string
	Format     CaptionFormat
	LastCueEnd time.Duration
}

// VideoConform describes how the recording is fitted to the output length.
type VideoConform string

const (
	ConformExact VideoConform = "exact"
	ConformTrim  VideoConform = "trim"
	ConformHold  VideoConform = "hold"
)

// Timeline is the immutable render plan. OutputDuration always equals the
// narration duration.
type Timeline struct {
	Video          Track
	Narration      Track
	Background     *BackgroundTrack
	Captions       *CaptionTrack
	Canvas         Canvas
	OutputDuration time.Duration
	Conform        VideoConform
	// Hold is how long the last recording frame is repeated.
	Hold time.Duration
}

// Sources are the measured inputs a timeline is planned from.
type Sources struct {
	Video      ffprobe.Info
	Narration  ffprobe.Info
	Background *ffprobe.Info
	Captions   *CaptionTrack
	// Mean loudness in dBFS, populated when level matching is enabled.
	NarrationMeanDB  *float64
	BackgroundMeanDB *float64
}

// BuildTimeline plans a render from probed inputs. It performs no I/O.
// Warnings describe drift a human should review; they never block a render.
func BuildTimeline(src Sources, settings Settings) (Timeline, []string, error) {
	settings = settings.withDefaults()
	if !src.Narration.HasAudio {
		return Timeline{}, nil, failure(StepConform, "narration has no audio stream", nil)
	}
	if src.Narration.Duration <= 0 {
		return Timeline{}, nil, failure(StepConform, "narration duration is zero", nil)
	}
	if !src.Video.HasVideo {
		return Timeline{}, nil, failure(StepConform, "recording has no video stream", nil)
	}
	if src.Video.Duration <= 0 {
		return Timeline{}, nil, failure(StepConform, "recording duration is zero", nil)
	}

	out := src.Narration.Duration
	tl := Timeline{
		Video:          Track{Path: src.Video.Path, Duration: src.Video.Duration},
		Narration:      Track{Path: src.Narration.Path, Duration: out},
		Canvas:         settings.Canvas,
		OutputDuration: out,
	}
	var warnings []string

	diff := src.Video.Duration - out
	switch {
	case absDuration(diff) <= settings.Canvas.frame():
		tl.Conform = ConformExact
	case diff > 0:
		tl.Conform = ConformTrim
	default:
		tl.Conform = ConformHold
		tl.Hold = -diff
	}
	if absDuration(diff) > settings.Tolerance {
		if diff > 0 {
			warnings = append(warnings, fmt.Sprintf("recording is %s longer than the narration; trimmed to %s",
				seconds(diff), seconds(out)))
		} else {
			warnings = append(warnings, fmt.Sprintf("recording is %s shorter than the narration; last frame held for %s",
				seconds(-diff), seconds(-diff)))
		}
	}

	if src.Background != nil {
		bg := src.Background
		if !bg.HasAudio || bg.Duration <= 0 {
			return Timeline{}, nil, failure(StepMix, "background music has no playable audio", nil)
		}
		gain := -settings.DuckingDB
		if src.NarrationMeanDB != nil && src.BackgroundMeanDB != nil {
			matched := *src.NarrationMeanDB - settings.DuckingDB - *src.BackgroundMeanDB
			if matched < gain {
				gain = matched
			}
		}
		tl.Background = &BackgroundTrack{
			Track:  Track{Path: bg.Path, Duration: bg.Duration},
			GainDB: math.Round(gain*10) / 10,
		}
	}

	if src.Captions != nil {
		captions := *src.Captions
		if captions.Path == "" {
			return Timeline{}, nil, failure(StepOverlay, "caption path is empty", nil)
		}
		if captions.Format != CaptionStyled {
			captions.Format = CaptionSRT
		}
		if over := captions.LastCueEnd - out; over > settings.Tolerance {
			warnings = append(warnings, fmt.Sprintf("captions run %s past the narration; cues after %s are cut",
				seconds(over), seconds(out)))
		}
		tl.Captions = &captions
	}
	return tl, warnings, nil
}

// Validate rejects timelines that cannot be rendered.
func (t Timeline) Validate() error {
	if t.OutputDuration <= 0 || t.OutputDuration != t.Narration.Duration {
		return errors.New("output duration must equal narration duration")
	}
	if t.Video.Path == "" || t.Narration.Path == "" {
		return errors.New("video and narration paths are required")
	}
	return nil
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
