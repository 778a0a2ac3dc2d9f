package recording

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/media/ffprobe"
	"demoforge/internal/product"
	"demoforge/internal/services"
	"demoforge/internal/stage"
)

// Prober inspects a supplied recording.
type Prober interface {
	Probe(ctx context.Context, path string) (ffprobe.Info, error)
}

// Canvas is the capture size suggested in the brief.
type Canvas struct {
	Width, Height, FPS int
}

// Stage is the recording pipeline stage.
type Stage struct {
	spec   *product.Spec
	store  *artifact.Store
	prober Prober
	canvas Canvas
	logger *slog.Logger
}

// NewStage builds the recording stage. prober may be nil.
func NewStage(spec *product.Spec, store *artifact.Store, prober Prober, canvas Canvas) *Stage {
	return &Stage{
		spec:   spec,
		store:  store,
		prober: prober,
		canvas: canvas,
		logger: logging.NewNop(),
	}
}

func (s *Stage) Name() stage.Name { return stage.Recording }

// Inputs declares the script as optional so the brief can quote narration.
func (s *Stage) Inputs() []stage.Selector {
	return []stage.Selector{stage.Optional(stage.Script, stage.KindScriptText)}
}

func (s *Stage) Outputs() []stage.Kind { return []stage.Kind{stage.KindVideoRaw} }

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Run reports the supplied recording, or writes a brief and waits for one.
func (s *Stage) Run(ctx context.Context, in stage.Inputs) stage.Result {
	dest := s.store.Path(stage.Recording, stage.KindVideoRaw)
	ref, ok := s.store.Get(stage.Recording, stage.KindVideoRaw)
	if !ok {
		return s.await(in, dest, "no screen recording has been supplied")
	}

	if s.prober != nil {
		info, err := s.prober.Probe(ctx, ref.Path)
		if err != nil {
			if ctx.Err() != nil {
				return stage.Failed(ctx.Err())
			}
			return s.await(in, dest, fmt.Sprintf("recording at %s could not be read (%v)", ref.Path, err))
		}
		if !info.HasVideo || info.Duration <= 0 {
			return s.await(in, dest, fmt.Sprintf("recording at %s has no video stream", ref.Path))
		}
		s.logger.Info("screen recording found",
			logging.Args(
				logging.String(logging.FieldEventType, "recording_found"),
				logging.String("path", ref.Path),
				logging.Duration("duration", info.Duration),
				logging.Int("width", info.Width),
				logging.Int("height", info.Height),
			)...,
		)
	}
	return stage.Done(map[stage.Kind]string{stage.KindVideoRaw: ref.Path})
}

func (s *Stage) await(in stage.Inputs, dest, reason string) stage.Result {
	brief := Brief{
		Spec:        s.spec,
		Width:       s.canvas.Width,
		Height:      s.canvas.Height,
		FPS:         s.canvas.FPS,
		Destination: dest,
	}
	if scriptPath, ok := in.Path(stage.Script, stage.KindScriptText); ok {
		if data, err := os.ReadFile(scriptPath); err == nil {
			brief.Narration = NarrationByScene(string(data))
		}
	}

	detail := reason
	briefRef, err := s.store.Put(stage.Recording, stage.KindRecordingBrief, []byte(brief.Markdown()))
	if err != nil {
		logging.WarnWithContext(s.logger, "recording brief not written", "recording_brief_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check run root permissions"),
			logging.String(logging.FieldImpact, "the operator has no capture checklist"),
		)
	} else {
		detail += "; see the recording brief at " + briefRef.Path
	}
	return stage.Failed(services.Wrap(services.ErrMissingRecording, string(stage.Recording), "await recording", detail, nil))
}
