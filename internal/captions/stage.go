package captions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/media/ffprobe"
	"demoforge/internal/services"
	"demoforge/internal/services/transcribe"
	"demoforge/internal/stage"
	"demoforge/internal/subtitles"
)

const (
	defaultWidth  = 1920
	defaultHeight = 1080
	defaultTitle  = "Product Demo Captions"
)

// Transcriber converts narration audio into a transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (transcribe.Transcript, error)
}

// Prober measures the narration.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
}

// Stage is the caption pipeline stage.
type Stage struct {
	store       *artifact.Store
	transcriber Transcriber
	prober      Prober
	retry       stage.RetryPolicy
	width       int
	height      int
	title       string
	wordsPerCue int
	logger      *slog.Logger
}

// Option customizes the stage.
type Option func(*Stage)

// WithCanvas sets the ASS play resolution.
func WithCanvas(width, height int) Option {
	return func(s *Stage) {
		if width > 0 && height > 0 {
			s.width, s.height = width, height
		}
	}
}

// WithTitle sets the ASS script title.
func WithTitle(title string) Option {
	return func(s *Stage) {
		if title != "" {
			s.title = title
		}
	}
}

// WithWordsPerCue sets the pacing of untimed transcripts.
func WithWordsPerCue(n int) Option {
	return func(s *Stage) {
		if n > 0 {
			s.wordsPerCue = n
		}
	}
}

// NewStage builds the caption stage.
func NewStage(store *artifact.Store, transcriber Transcriber, prober Prober, retry stage.RetryPolicy, opts ...Option) *Stage {
	s := &Stage{
		store:       store,
		transcriber: transcriber,
		prober:      prober,
		retry:       retry,
		width:       defaultWidth,
		height:      defaultHeight,
		title:       defaultTitle,
		wordsPerCue: subtitles.DefaultWordsPerCue,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stage) Name() stage.Name { return stage.Captions }

func (s *Stage) Inputs() []stage.Selector {
	return []stage.Selector{stage.Require(stage.Voiceover, stage.KindAudio)}
}

func (s *Stage) Outputs() []stage.Kind {
	return []stage.Kind{stage.KindCaptionSRT, stage.KindCaptionStyled}
}

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// HealthCheck implements stage.HealthChecker.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	return stage.CheckReady(string(stage.Captions), s.transcriber)
}

// Run transcribes the narration and stores both caption renditions.
func (s *Stage) Run(ctx context.Context, in stage.Inputs) stage.Result {
	audioPath, _ := in.Path(stage.Voiceover, stage.KindAudio)
	info, err := s.prober.Probe(ctx, audioPath)
	if err != nil {
		return stage.Failed(services.Wrap(services.ErrValidation, string(stage.Captions), "probe narration", audioPath, err))
	}
	if !info.HasAudio || info.Duration <= 0 {
		return stage.Failed(services.Wrap(services.ErrValidation, string(stage.Captions), "probe narration",
			audioPath+" has no audio stream", nil))
	}

	var transcript transcribe.Transcript
	attempts, err := s.retry.Logged(s.logger, "captions").Do(ctx, func(ctx context.Context) error {
		out, err := s.transcriber.Transcribe(ctx, audioPath)
		if err != nil {
			return err
		}
		transcript = out
		return nil
	})
	if err != nil {
		return stage.Failed(fmt.Errorf("transcribe narration (%d attempt(s)): %w", attempts, err))
	}

	cues, fit, err := s.cues(transcript, info.Duration)
	if err != nil {
		return stage.Failed(err)
	}

	srtRef, err := s.store.Put(stage.Captions, stage.KindCaptionSRT, subtitles.FormatSRT(cues))
	if err != nil {
		return stage.Failed(fmt.Errorf("store captions: %w", err))
	}
	style := subtitles.DefaultStyle(s.height)
	assRef, err := s.store.Put(stage.Captions, stage.KindCaptionStyled, subtitles.FormatASS(cues, style, s.width, s.height, s.title))
	if err != nil {
		return stage.Failed(fmt.Errorf("store styled captions: %w", err))
	}

	s.logger.Info("captions generated",
		logging.Args(
			logging.String(logging.FieldEventType, "captions_generated"),
			logging.Int("cues", len(cues)),
			logging.Int("removed_cues", fit.removed),
			logging.Int("trimmed_cues", fit.trimmed),
			logging.Int("dropped_cues", fit.dropped),
			logging.Bool("timed", transcript.Timed),
			logging.Int("attempts", attempts),
			logging.Duration("last_cue_end", subtitles.LastEnd(cues)),
			logging.Duration("narration_duration", info.Duration),
		)...,
	)

	var warnings []string
	if !transcript.Timed {
		warnings = append(warnings, "transcription returned no timings; captions are evenly paced across the narration")
	}
	if fit.trimmed > 0 || fit.dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("captions ran past the %s narration: %d cue(s) trimmed, %d dropped",
			info.Duration.Round(time.Millisecond), fit.trimmed, fit.dropped))
	}
	return stage.Done(map[stage.Kind]string{
		stage.KindCaptionSRT:    srtRef.Path,
		stage.KindCaptionStyled: assRef.Path,
	}, warnings...)
}

// cueFit counts what cleanup and clamping did to the transcript.
type cueFit struct {
	removed int
	trimmed int
	dropped int
}

func (s *Stage) cues(transcript transcribe.Transcript, narration time.Duration) ([]subtitles.Cue, cueFit, error) {
	var cues []subtitles.Cue
	var fit cueFit
	if transcript.Timed {
		parsed, err := subtitles.ParseSRT(transcript.Data)
		if err != nil {
			return nil, fit, services.Wrap(services.ErrGeneratorFatal, string(stage.Captions), "parse transcript", "", err)
		}
		var stats subtitles.CleanStats
		cues, stats = subtitles.Clean(parsed)
		fit.removed = stats.RemovedCues
	} else {
		cues = subtitles.CuesFromText(string(transcript.Data), narration, s.wordsPerCue)
	}
	cues, fit.trimmed, fit.dropped = clamp(cues, narration)
	cues = subtitles.Normalize(cues)
	if len(cues) == 0 {
		return nil, fit, services.Wrap(services.ErrGeneratorFatal, string(stage.Captions), "build captions",
			"transcript contained no speech within the narration", nil)
	}
	return cues, fit, nil
}

// clamp drops cues that start after the narration ends and trims the rest.
func clamp(cues []subtitles.Cue, limit time.Duration) (out []subtitles.Cue, trimmed, dropped int) {
	out = cues[:0]
	for _, cue := range cues {
		if cue.Start >= limit {
			dropped++
			continue
		}
		if cue.End > limit {
			cue.End = limit
			trimmed++
		}
		out = append(out, cue)
	}
	return out, trimmed, dropped
}
