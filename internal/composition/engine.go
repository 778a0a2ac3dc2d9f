package composition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"demoforge/internal/artifact"
	"demoforge/internal/fileutil"
	"demoforge/internal/logging"
	"demoforge/internal/media/ffmpeg"
	"demoforge/internal/media/ffprobe"
	"demoforge/internal/stage"
	"demoforge/internal/subtitles"
)

// Prober measures media files.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
}

// Encoder runs ffmpeg.
type Encoder interface {
	Run(ctx context.Context, args ...string) error
}

// Meter measures mean loudness.
type Meter interface {
	MeanVolume(ctx context.Context, path, filter string) (ffmpeg.Volume, error)
}

// Request names the inputs of one render.
type Request struct {
	VideoPath      string
	NarrationPath  string
	BackgroundPath string
	CaptionsPath   string
	CaptionFormat  CaptionFormat
}

// Output describes a committed render.
type Output struct {
	Ref      artifact.Ref
	Timeline Timeline
	Rendered ffprobe.Info
	Warnings []string
}

// Engine plans and renders compositions into an artifact store.
type Engine struct {
	store    *artifact.Store
	prober   Prober
	encoder  Encoder
	meter    Meter
	settings Settings
	logger   *slog.Logger

	// beforeCommit runs after the rendered file is verified and before it is
	// moved into place.
	beforeCommit func(tmpPath string) error
}

// Option configures an Engine.
type Option func(*Engine)

// WithMeter enables loudness measurement for level-matched ducking.
func WithMeter(m Meter) Option {
	return func(e *Engine) { e.meter = m }
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine builds an engine writing video_final into store.
func NewEngine(store *artifact.Store, prober Prober, encoder Encoder, settings Settings, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		prober:   prober,
		encoder:  encoder,
		settings: settings.withDefaults(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Settings returns the effective settings.
func (e *Engine) Settings() Settings { return e.settings }

// SetLogger replaces the engine logger.
func (e *Engine) SetLogger(logger *slog.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Plan probes the inputs and builds the timeline without rendering.
func (e *Engine) Plan(ctx context.Context, req Request) (Timeline, []string, error) {
	logger := logging.WithContext(ctx, e.logger)

	src := Sources{}
	var err error
	if src.Narration, err = e.probe(ctx, "narration", req.NarrationPath); err != nil {
		return Timeline{}, nil, err
	}
	if src.Video, err = e.probe(ctx, "recording", req.VideoPath); err != nil {
		return Timeline{}, nil, err
	}
	if strings.TrimSpace(req.BackgroundPath) != "" {
		info, err := e.probe(ctx, "background music", req.BackgroundPath)
		if err != nil {
			return Timeline{}, nil, err
		}
		src.Background = &info
		if e.settings.LevelMatch && e.meter != nil && info.HasAudio {
			narr, err := e.meter.MeanVolume(ctx, req.NarrationPath, "")
			if err != nil {
				return Timeline{}, nil, failure(StepMix, "measure narration loudness", err)
			}
			bg, err := e.meter.MeanVolume(ctx, req.BackgroundPath, "")
			if err != nil {
				return Timeline{}, nil, failure(StepMix, "measure background loudness", err)
			}
			src.NarrationMeanDB = &narr.MeanDB
			src.BackgroundMeanDB = &bg.MeanDB
		}
	}
	if strings.TrimSpace(req.CaptionsPath) != "" {
		end, err := subtitles.LastCueEnd(req.CaptionsPath)
		if err != nil {
			return Timeline{}, nil, failure(StepOverlay, "read caption timing", err)
		}
		src.Captions = &CaptionTrack{Path: req.CaptionsPath, Format: req.CaptionFormat, LastCueEnd: end}
	}

	tl, warnings, err := BuildTimeline(src, e.settings)
	if err != nil {
		return Timeline{}, nil, err
	}
	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "composition_plan"),
		logging.Duration("output_duration", tl.OutputDuration),
		logging.Duration("recording_duration", tl.Video.Duration),
		logging.String("video_conform", string(tl.Conform)),
	}
	if tl.Background != nil {
		attrs = append(attrs, logging.Float64("background_gain_db", tl.Background.GainDB))
	}
	if tl.Captions != nil {
		attrs = append(attrs, logging.String("caption_format", string(tl.Captions.Format)))
	}
	logger.Info("composition planned", logging.Args(attrs...)...)
	for _, w := range warnings {
		logging.WarnWithContext(logger, "composition drift", "composition_warning",
			logging.String("warning", w),
			logging.String(logging.FieldErrorHint, "review the recording against the script timing"),
			logging.String(logging.FieldImpact, "final video may look out of sync"),
		)
	}
	return tl, warnings, nil
}

// Render plans, encodes, verifies, and commits video_final. On any failure
// the store holds no video_final written by this call.
func (e *Engine) Render(ctx context.Context, req Request) (Output, error) {
	logger := logging.WithContext(ctx, e.logger)

	tl, warnings, err := e.Plan(ctx, req)
	if err != nil {
		return Output{}, err
	}
	if err := tl.Validate(); err != nil {
		return Output{}, failure(StepConform, "invalid timeline", err)
	}

	tmp, err := e.store.Reserve(stage.Composite, stage.KindVideoFinal)
	if err != nil {
		return Output{}, failure(StepEncode, "reserve output", err)
	}
	committed := false
	defer func() {
		if !committed {
			e.store.Discard(tmp)
		}
	}()

	if err := e.encoder.Run(ctx, Args(tl, e.settings, tmp)...); err != nil {
		return Output{}, encodeFailure(ctx, err)
	}

	rendered, err := e.prober.Probe(ctx, tmp)
	if err != nil {
		return Output{}, failure(StepEncode, "probe rendered output", err)
	}
	if !rendered.Playable() || !rendered.HasVideo || !rendered.HasAudio {
		return Output{}, failure(StepEncode, fmt.Sprintf(
			"rendered output is not playable (duration=%s video=%t audio=%t)",
			rendered.Duration, rendered.HasVideo, rendered.HasAudio), nil)
	}
	if drift := absDuration(rendered.Duration - tl.OutputDuration); drift > e.settings.Tolerance {
		warnings = append(warnings, fmt.Sprintf("rendered duration %s differs from narration %s",
			seconds(rendered.Duration), seconds(tl.OutputDuration)))
	}

	if e.beforeCommit != nil {
		if err := e.beforeCommit(tmp); err != nil {
			return Output{}, failure(StepEncode, "render interrupted before commit", err)
		}
	}
	ref, err := e.store.Commit(tmp, stage.Composite, stage.KindVideoFinal)
	if err != nil {
		return Output{}, failure(StepEncode, "commit output", err)
	}
	committed = true

	logger.Info("composition rendered",
		logging.String(logging.FieldEventType, "composition_complete"),
		logging.String("path", ref.Path),
		logging.Int64("size_bytes", ref.Size),
		logging.Duration("duration", rendered.Duration),
	)
	return Output{Ref: ref, Timeline: tl, Rendered: rendered, Warnings: warnings}, nil
}

func (e *Engine) probe(ctx context.Context, label, path string) (ffprobe.Info, error) {
	if strings.TrimSpace(path) == "" {
		return ffprobe.Info{}, failure(StepProbe, label+" path is empty", nil)
	}
	if _, ok := fileutil.NonEmpty(path); !ok {
		return ffprobe.Info{}, failure(StepProbe, fmt.Sprintf("%s %s is missing or empty", label, path), nil)
	}
	info, err := e.prober.Probe(ctx, path)
	if err != nil {
		return ffprobe.Info{}, failure(StepProbe, "probe "+label, err)
	}
	info.Path = path
	return info, nil
}

func encodeFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return failure(StepEncode, "render canceled", ctx.Err())
	}
	var ffErr *ffmpeg.Error
	if errors.As(err, &ffErr) {
		step := StepEncode
		if ffmpeg.MatchMissingFilter(ffErr.Stderr) || ffmpeg.MatchSubtitleInput(ffErr.Stderr) {
			step = StepOverlay
		}
		return failure(step, ffErr.Hint(), err)
	}
	return failure(StepEncode, "ffmpeg failed", err)
}
