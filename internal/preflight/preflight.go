package preflight

import (
	"context"

	"demoforge/internal/config"
	"demoforge/internal/deps"
	"demoforge/internal/stage"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every environment check for the given config. lister may be
// nil, in which case the ffmpeg build is not inspected.
func RunAll(ctx context.Context, cfg *config.Config, lister deps.CapabilityLister) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Run root", cfg.Paths.RunRoot),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	ffmpegAvailable := false
	for _, status := range deps.CheckBinaries(deps.MediaRequirements(cfg.Composition.FFmpegBinary, cfg.Composition.FFprobeBinary)) {
		results = append(results, fromStatus(status))
		if status.Name == "FFmpeg" && status.Available {
			ffmpegAvailable = true
		}
	}
	if lister != nil && ffmpegAvailable {
		results = append(results, fromStatus(deps.CheckFFmpegBuild(ctx, lister, cfg.Composition.VideoCodec, cfg.Composition.AudioCodec)))
	}

	results = append(results,
		CheckAPIKey("Script LLM key", cfg.Script.APIKey, "DEMOFORGE_LLM_API_KEY", "OPENAI_API_KEY"),
		CheckAPIKey("Voiceover TTS key", cfg.Voiceover.APIKey, "ELEVENLABS_API_KEY"),
		CheckAPIKey("Captions transcription key", cfg.Captions.APIKey, "DEMOFORGE_TRANSCRIBE_API_KEY", "OPENAI_API_KEY"),
	)
	return results
}

// FromHealth converts stage readiness reports into results.
func FromHealth(health []stage.Health) []Result {
	out := make([]Result, 0, len(health))
	for _, h := range health {
		r := Result{Name: "Stage " + h.Name, Passed: h.Ready, Detail: h.Detail}
		if r.Passed && r.Detail == "" {
			r.Detail = "ready"
		}
		out = append(out, r)
	}
	return out
}

// Failed filters results down to the failing checks.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func fromStatus(status deps.Status) Result {
	detail := status.Detail
	if status.Available && detail == "" {
		detail = status.Command
	}
	return Result{Name: status.Name, Passed: status.Available, Detail: detail}
}
