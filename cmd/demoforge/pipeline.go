package main

import (
	"fmt"
	"log/slog"
	"strings"

	"demoforge/internal/captions"
	"demoforge/internal/composition"
	"demoforge/internal/config"
	"demoforge/internal/logging"
	"demoforge/internal/media/ffmpeg"
	"demoforge/internal/media/ffprobe"
	"demoforge/internal/recording"
	"demoforge/internal/script"
	"demoforge/internal/services/llm"
	"demoforge/internal/services/transcribe"
	"demoforge/internal/services/tts"
	"demoforge/internal/stage"
	"demoforge/internal/voiceover"
	"demoforge/internal/workflow"
)

// pipeline is a wired orchestrator plus the media tools it shares with
// preflight checks.
type pipeline struct {
	orchestrator *workflow.Orchestrator
	ffmpeg       *ffmpeg.Runner
	ffprobe      *ffprobe.Prober
	background   string
}

// buildPipeline maps configuration onto the five stage handlers. background
// overrides the product's bgm_track when set.
func buildPipeline(ws *productWorkspace, background string, logger *slog.Logger, extra ...workflow.Option) (*pipeline, error) {
	cfg, spec, store := ws.cfg, ws.spec, ws.store
	if logger == nil {
		logger = logging.NewNop()
	}

	background = strings.TrimSpace(background)
	if background == "" {
		background = spec.Assets.BackgroundMusic
	} else if expanded, err := config.ExpandPath(background); err == nil {
		background = expanded
	}

	retry := retryPolicy(cfg.Retry)
	prober := ffprobe.New(cfg.Composition.FFprobeBinary)
	runner := ffmpeg.New(cfg.Composition.FFmpegBinary)
	comp := cfg.Composition

	llmClient := llm.NewClient(llm.Config{
		APIKey:         cfg.Script.APIKey,
		BaseURL:        cfg.Script.BaseURL,
		Model:          cfg.Script.Model,
		Referer:        cfg.Script.Referer,
		Title:          cfg.Script.Title,
		Temperature:    cfg.Script.Temperature,
		MaxTokens:      cfg.Script.MaxTokens,
		TimeoutSeconds: cfg.Script.TimeoutSeconds,
	})
	ttsClient := tts.NewClient(tts.Config{
		APIKey:         cfg.Voiceover.APIKey,
		BaseURL:        cfg.Voiceover.BaseURL,
		ModelID:        cfg.Voiceover.ModelID,
		OutputFormat:   cfg.Voiceover.OutputFormat,
		TimeoutSeconds: cfg.Voiceover.TimeoutSeconds,
	})
	transcriber := transcribe.NewClient(transcribe.Config{
		APIKey:         cfg.Captions.APIKey,
		BaseURL:        cfg.Captions.BaseURL,
		Model:          cfg.Captions.Model,
		Language:       cfg.Captions.Language,
		TimeoutSeconds: cfg.Captions.TimeoutSeconds,
	})

	settings := composition.Settings{
		Canvas:       composition.Canvas{Width: comp.Width, Height: comp.Height, FPS: comp.FPS},
		DuckingDB:    comp.DuckingDB,
		LevelMatch:   comp.LevelMatch,
		Tolerance:    comp.Tolerance(),
		VideoCodec:   comp.VideoCodec,
		Preset:       comp.Preset,
		CRF:          comp.CRF,
		AudioCodec:   comp.AudioCodec,
		AudioBitrate: comp.AudioBitrate,
		SampleRate:   comp.SampleRate,
	}
	engineOpts := []composition.Option{composition.WithLogger(logger)}
	if comp.LevelMatch {
		engineOpts = append(engineOpts, composition.WithMeter(runner))
	}
	engine := composition.NewEngine(store, prober, runner, settings, engineOpts...)

	handlers := []stage.Handler{
		script.NewStage(spec, store, script.NewLLMGenerator(llmClient), retry),
		voiceover.NewStage(spec.Voice, store, ttsClient, retry,
			voiceover.WithProber(prober),
			voiceover.WithMaxChars(cfg.Voiceover.MaxChars),
		),
		captions.NewStage(store, transcriber, prober, retry,
			captions.WithCanvas(comp.Width, comp.Height),
			captions.WithTitle(spec.Product.Name+" Demo Captions"),
			captions.WithWordsPerCue(cfg.Captions.WordsPerCue),
		),
		recording.NewStage(spec, store, prober, recording.Canvas{Width: comp.Width, Height: comp.Height, FPS: comp.FPS}),
		composition.NewStage(engine, background),
	}

	opts := append([]workflow.Option{
		workflow.WithProduct(spec.Slug()),
		workflow.WithStageLevels(logging.ParseStageLevels(cfg.Logging.StageOverrides)),
	}, extra...)
	orch, err := workflow.New(store, handlers, logger, opts...)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return &pipeline{orchestrator: orch, ffmpeg: runner, ffprobe: prober, background: background}, nil
}

func retryPolicy(cfg config.Retry) stage.RetryPolicy {
	return stage.RetryPolicy{
		MaxAttempts:  cfg.MaxAttempts,
		InitialDelay: cfg.InitialDelay(),
		MaxDelay:     cfg.MaxDelay(),
	}
}

// parseStageOptions converts CLI flags into orchestrator options.
func parseStageOptions(resumeFrom string, skips map[stage.Name]bool, recordingPath string) (workflow.Options, error) {
	opts := workflow.Options{}
	if value := strings.TrimSpace(resumeFrom); value != "" {
		name, err := stage.ParseName(value)
		if err != nil {
			return opts, err
		}
		opts.ResumeFrom = name
	}
	for _, name := range stage.Order {
		if skips[name] {
			opts.Skip = append(opts.Skip, name)
		}
	}
	if value := strings.TrimSpace(recordingPath); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return opts, fmt.Errorf("resolve recording path: %w", err)
		}
		opts.Recording = expanded
	}
	return opts, nil
}
