package voiceover

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/media/ffprobe"
	"demoforge/internal/product"
	"demoforge/internal/script"
	"demoforge/internal/services"
	"demoforge/internal/services/tts"
	"demoforge/internal/stage"
)

// Synthesizer turns text into encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, voice tts.Voice) ([]byte, error)
}

// Prober verifies the synthesized audio.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
}

// Stage is the voiceover pipeline stage.
type Stage struct {
	voice       product.Voice
	store       *artifact.Store
	synthesizer Synthesizer
	retry       stage.RetryPolicy
	maxChars    int
	prober      Prober
	logger      *slog.Logger
}

// Option customizes the stage.
type Option func(*Stage)

// WithProber verifies stored audio has a playable audio stream.
func WithProber(p Prober) Option {
	return func(s *Stage) { s.prober = p }
}

// WithMaxChars overrides the per-request text limit.
func WithMaxChars(n int) Option {
	return func(s *Stage) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// NewStage builds the voiceover stage.
func NewStage(voice product.Voice, store *artifact.Store, synthesizer Synthesizer, retry stage.RetryPolicy, opts ...Option) *Stage {
	s := &Stage{
		voice:       voice,
		store:       store,
		synthesizer: synthesizer,
		retry:       retry,
		maxChars:    tts.DefaultMaxChars,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Stage) Name() stage.Name { return stage.Voiceover }

func (s *Stage) Inputs() []stage.Selector {
	return []stage.Selector{stage.Require(stage.Script, stage.KindScriptText)}
}

func (s *Stage) Outputs() []stage.Kind { return []stage.Kind{stage.KindAudio} }

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// HealthCheck implements stage.HealthChecker.
func (s *Stage) HealthCheck(context.Context) stage.Health {
	if s.voice.VoiceID == "" {
		return stage.Unhealthy(string(stage.Voiceover), "product voice has no voice id")
	}
	return stage.CheckReady(string(stage.Voiceover), s.synthesizer)
}

// Run synthesizes the script narration.
func (s *Stage) Run(ctx context.Context, in stage.Inputs) stage.Result {
	scriptPath, _ := in.Path(stage.Script, stage.KindScriptText)
	raw, err := os.ReadFile(scriptPath)
	if err != nil {
		return stage.Failed(services.Wrap(services.ErrMissingDependency, string(stage.Voiceover), "read script", scriptPath, err))
	}
	narration := script.ExtractNarration(string(raw))
	if narration == "" {
		return stage.Failed(services.Wrap(services.ErrValidation, string(stage.Voiceover), "extract narration",
			"script "+scriptPath+" contains no narration", nil))
	}

	chunks := Chunk(narration, s.maxChars)
	voice := toTTSVoice(s.voice)
	policy := s.retry.Logged(s.logger, "voiceover")
	var audio bytes.Buffer
	totalAttempts := 0
	for i, chunk := range chunks {
		var part []byte
		attempts, err := policy.Do(ctx, func(ctx context.Context) error {
			out, err := s.synthesizer.Synthesize(ctx, chunk, voice)
			if err != nil {
				return err
			}
			part = out
			return nil
		})
		totalAttempts += attempts
		if err != nil {
			return stage.Failed(fmt.Errorf("synthesize chunk %d/%d (%d attempt(s)): %w", i+1, len(chunks), attempts, err))
		}
		audio.Write(part)
	}

	ref, duration, err := s.publish(ctx, audio.Bytes())
	if err != nil {
		return stage.Failed(err)
	}

	attrs := []logging.Attr{
		logging.String(logging.FieldEventType, "voiceover_synthesized"),
		logging.Int("chunks", len(chunks)),
		logging.Int("attempts", totalAttempts),
		logging.Int("words", script.CountWords(narration)),
		logging.Int64("audio_bytes", ref.Size),
	}
	if duration > 0 {
		attrs = append(attrs, logging.Duration("narration_duration", duration))
	}
	s.logger.Info("voiceover synthesized", logging.Args(attrs...)...)
	return stage.Done(map[stage.Kind]string{stage.KindAudio: ref.Path})
}

// publish stages the audio in a reserved temp file, probes it there and
// commits it only once it holds a playable stream. Without a prober the audio
// is stored as is.
func (s *Stage) publish(ctx context.Context, audio []byte) (artifact.Ref, time.Duration, error) {
	if s.prober == nil {
		ref, err := s.store.Put(stage.Voiceover, stage.KindAudio, audio)
		if err != nil {
			return artifact.Ref{}, 0, fmt.Errorf("store narration: %w", err)
		}
		return ref, 0, nil
	}

	tmp, err := s.store.Reserve(stage.Voiceover, stage.KindAudio)
	if err != nil {
		return artifact.Ref{}, 0, fmt.Errorf("store narration: %w", err)
	}
	if err := os.WriteFile(tmp, audio, 0o644); err != nil {
		s.store.Discard(tmp)
		return artifact.Ref{}, 0, fmt.Errorf("store narration: %w", err)
	}
	info, err := s.prober.Probe(ctx, tmp)
	if err == nil && (!info.HasAudio || info.Duration <= 0) {
		err = fmt.Errorf("no playable audio stream")
	}
	if err != nil {
		s.store.Discard(tmp)
		return artifact.Ref{}, 0, services.Wrap(services.ErrGeneratorFatal, string(stage.Voiceover), "verify audio",
			s.store.Path(stage.Voiceover, stage.KindAudio), err)
	}
	ref, err := s.store.Commit(tmp, stage.Voiceover, stage.KindAudio)
	if err != nil {
		return artifact.Ref{}, 0, fmt.Errorf("store narration: %w", err)
	}
	return ref, info.Duration, nil
}

func toTTSVoice(v product.Voice) tts.Voice {
	return tts.Voice{
		ID:              v.VoiceID,
		Stability:       v.Stability,
		SimilarityBoost: v.Clarity,
		Style:           v.Style,
		SpeakerBoost:    true,
	}
}
