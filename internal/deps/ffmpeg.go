package deps

import (
	"context"
	"fmt"
	"strings"

	"demoforge/internal/media/ffmpeg"
)

// CompositionFilters are the ffmpeg filters a render graph is built from.
// Caption burn-in needs ass for styled captions and subtitles for plain SRT.
var CompositionFilters = []string{
	"trim", "setpts", "tpad", "scale", "pad", "setsar", "fps", "format",
	"aresample", "aformat", "atrim", "asetpts", "apad", "volume", "amix",
	"ass", "subtitles", "volumedetect",
}

// MediaRequirements lists the ffmpeg and ffprobe binaries.
func MediaRequirements(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegBinary,
			Description: "Required for rendering the final video",
		},
		{
			Name:        "FFprobe",
			Command:     ffprobeBinary,
			Description: "Required for measuring narration and recordings",
		},
	}
}

// CapabilityLister reports what an ffmpeg build supports.
type CapabilityLister interface {
	Capabilities(ctx context.Context) (ffmpeg.Capabilities, error)
}

// CheckFFmpegBuild reports whether the ffmpeg build has the configured
// encoders and every composition filter.
func CheckFFmpegBuild(ctx context.Context, lister CapabilityLister, videoCodec, audioCodec string) Status {
	status := Status{Requirement: Requirement{
		Name:        "FFmpeg build",
		Description: "Encoders and filters used by composition",
	}}
	caps, err := lister.Capabilities(ctx)
	if err != nil {
		status.Detail = fmt.Sprintf("could not list capabilities: %v", err)
		return status
	}
	var encoders []string
	for _, codec := range []string{videoCodec, audioCodec} {
		if codec = strings.TrimSpace(codec); codec != "" {
			encoders = append(encoders, codec)
		}
	}
	if missing := caps.Missing(encoders, CompositionFilters); len(missing) > 0 {
		status.Detail = "missing " + strings.Join(missing, ", ")
		return status
	}
	status.Available = true
	status.Detail = fmt.Sprintf("%s, %s and %d filters present", videoCodec, audioCodec, len(CompositionFilters))
	return status
}
