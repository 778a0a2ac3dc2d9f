package composition

import (
	"context"
	"log/slog"
	"strings"

	"demoforge/internal/fileutil"
	"demoforge/internal/logging"
	"demoforge/internal/stage"
)

// Stage is the composite pipeline stage.
type Stage struct {
	engine     *Engine
	background string
	logger     *slog.Logger
}

// NewStage wraps engine. backgroundPath is optional music mixed under the
// narration.
func NewStage(engine *Engine, backgroundPath string) *Stage {
	return &Stage{
		engine:     engine,
		background: strings.TrimSpace(backgroundPath),
		logger:     logging.NewNop(),
	}
}

func (s *Stage) Name() stage.Name { return stage.Composite }

func (s *Stage) Inputs() []stage.Selector {
	return []stage.Selector{
		stage.Require(stage.Voiceover, stage.KindAudio),
		stage.Require(stage.Captions, stage.KindCaptionSRT),
		stage.Optional(stage.Captions, stage.KindCaptionStyled),
		stage.Require(stage.Recording, stage.KindVideoRaw),
	}
}

func (s *Stage) Outputs() []stage.Kind { return []stage.Kind{stage.KindVideoFinal} }

// SetLogger implements stage.LoggerAware.
func (s *Stage) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.logger = logger
	s.engine.SetLogger(logger)
}

// Run renders the final video. Styled captions win over plain SRT when both
// exist.
func (s *Stage) Run(ctx context.Context, in stage.Inputs) stage.Result {
	narration, _ := in.Path(stage.Voiceover, stage.KindAudio)
	video, _ := in.Path(stage.Recording, stage.KindVideoRaw)
	req := Request{
		VideoPath:      video,
		NarrationPath:  narration,
		BackgroundPath: s.background,
	}
	if styled, ok := in.Path(stage.Captions, stage.KindCaptionStyled); ok {
		req.CaptionsPath, req.CaptionFormat = styled, CaptionStyled
	} else if srt, ok := in.Path(stage.Captions, stage.KindCaptionSRT); ok {
		req.CaptionsPath, req.CaptionFormat = srt, CaptionSRT
	}
	if req.BackgroundPath != "" {
		if _, ok := fileutil.NonEmpty(req.BackgroundPath); !ok {
			return stage.Failed(failure(StepProbe, "background music "+req.BackgroundPath+" is missing or empty", nil))
		}
	}

	out, err := s.engine.Render(ctx, req)
	if err != nil {
		return stage.Failed(err)
	}
	return stage.Done(map[stage.Kind]string{stage.KindVideoFinal: out.Ref.Path}, out.Warnings...)
}
