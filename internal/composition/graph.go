package composition

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Input order in the ffmpeg command line.
const (
	inputVideo      = 0
	inputNarration  = 1
	inputBackground = 2
)

// FilterGraph builds the -filter_complex program for a timeline. The video
// chain ends at [vout] and the audio chain at [aout].
func FilterGraph(t Timeline, settings Settings) string {
	settings = settings.withDefaults()
	dur := clock(t.OutputDuration)
	w, h := t.Canvas.Width, t.Canvas.Height
	if w <= 0 || h <= 0 {
		w, h = settings.Canvas.Width, settings.Canvas.Height
	}
	fps := t.Canvas.FPS
	if fps <= 0 {
		fps = settings.Canvas.FPS
	}

	video := []string{"trim=duration=" + dur, "setpts=PTS-STARTPTS"}
	if t.Hold > 0 {
		video = append(video, "tpad=stop_mode=clone:stop_duration="+clock(t.Hold))
	}
	video = append(video,
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", w, h),
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:(oh-ih)/2:color=black", w, h),
		"setsar=1",
		fmt.Sprintf("fps=%d", fps),
	)
	if t.Captions != nil {
		video = append(video, captionFilter(*t.Captions, w, h))
	}
	video = append(video, "format=yuv420p")

	chains := []string{fmt.Sprintf("[%d:v]%s[vout]", inputVideo, strings.Join(video, ","))}

	narration := strings.Join(append(audioPrelude(settings.SampleRate),
		"atrim=duration="+dur,
		"asetpts=PTS-STARTPTS",
		"apad=whole_dur="+dur,
	), ",")

	if t.Background == nil {
		chains = append(chains, fmt.Sprintf("[%d:a]%s[aout]", inputNarration, narration))
		return strings.Join(chains, ";")
	}

	background := strings.Join(append(audioPrelude(settings.SampleRate),
		fmt.Sprintf("volume=%.1fdB", t.Background.GainDB),
		"atrim=duration="+dur,
		"asetpts=PTS-STARTPTS",
	), ",")
	chains = append(chains,
		fmt.Sprintf("[%d:a]%s[narr]", inputNarration, narration),
		fmt.Sprintf("[%d:a]%s[bg]", inputBackground, background),
		"[narr][bg]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[aout]",
	)
	return strings.Join(chains, ";")
}

// Args builds the full ffmpeg argument list rendering t into output.
func Args(t Timeline, settings Settings, output string) []string {
	settings = settings.withDefaults()
	fps := t.Canvas.FPS
	if fps <= 0 {
		fps = settings.Canvas.FPS
	}
	args := []string{"-y", "-loglevel", "error",
		"-i", t.Video.Path,
		"-i", t.Narration.Path,
	}
	if t.Background != nil {
		args = append(args, "-stream_loop", "-1", "-i", t.Background.Path)
	}
	args = append(args,
		"-filter_complex", FilterGraph(t, settings),
		"-map", "[vout]",
		"-map", "[aout]",
		"-c:v", settings.VideoCodec,
		"-preset", settings.Preset,
		"-crf", strconv.Itoa(settings.CRF),
		"-r", strconv.Itoa(fps),
		"-c:a", settings.AudioCodec,
		"-b:a", settings.AudioBitrate,
		"-ar", strconv.Itoa(settings.SampleRate),
		"-ac", "2",
		"-t", clock(t.OutputDuration),
		"-movflags", "+faststart",
		"-f", "mp4",
		output,
	)
	return args
}

func audioPrelude(sampleRate int) []string {
	return []string{
		fmt.Sprintf("aresample=%d", sampleRate),
		"aformat=sample_fmts=fltp:channel_layouts=stereo",
	}
}

func captionFilter(c CaptionTrack, w, h int) string {
	path := escapeFilterValue(c.Path)
	if c.Format == CaptionStyled {
		return "ass=filename=" + path
	}
	return fmt.Sprintf("subtitles=filename=%s:original_size=%dx%d", path, w, h)
}

// escapeFilterValue escapes a path for use as a filter option inside a
// filtergraph. Option values and the graph itself each have their own
// special characters, so the value is escaped twice.
func escapeFilterValue(value string) string {
	option := strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`).Replace(value)
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`).Replace(option)
}

func clock(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}
