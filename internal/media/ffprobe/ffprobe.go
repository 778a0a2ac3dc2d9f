package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Result is the decoded ffprobe payload.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes one elementary stream.
type Stream struct {
	Index        int    `json:"index"`
	CodecName    string `json:"codec_name"`
	CodecType    string `json:"codec_type"`
	Duration     string `json:"duration"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	AvgFrameRate string `json:"avg_frame_rate"`
	SampleRate   string `json:"sample_rate"`
	Channels     int    `json:"channels"`
}

// Format holds container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Info is the summary the composition engine consumes.
type Info struct {
	Path      string
	Duration  time.Duration
	HasVideo  bool
	HasAudio  bool
	Width     int
	Height    int
	FrameRate float64
}

// Playable reports whether the media has a positive duration.
func (i Info) Playable() bool { return i.Duration > 0 }

// Runner executes ffprobe and returns stdout.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Prober inspects media files with a configured ffprobe binary.
type Prober struct {
	Binary string
	run    Runner
}

// New returns a prober for binary (defaults to "ffprobe").
func New(binary string) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{Binary: binary, run: execRunner}
}

// WithRunner replaces the process runner. Tests use it to feed canned JSON.
func (p *Prober) WithRunner(run Runner) *Prober {
	if run != nil {
		p.run = run
	}
	return p
}

// Probe returns the summarized stream layout of path.
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	result, err := p.Inspect(ctx, path)
	if err != nil {
		return Info{}, err
	}
	return result.Summarize(path), nil
}

// Inspect runs ffprobe and decodes the full payload.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	run := p.run
	if run == nil {
		run = execRunner
	}
	output, err := run(ctx, p.Binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect %s: %w", path, err)
	}
	return Parse(output)
}

// Parse decodes an ffprobe JSON document.
func Parse(payload []byte) (Result, error) {
	var result Result
	if err := json.Unmarshal(payload, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

// Summarize reduces the payload to an Info. When the container reports no
// duration (common for raw WebM captures), the longest stream duration wins.
func (r Result) Summarize(path string) Info {
	info := Info{Path: path}
	longest := 0.0
	for _, stream := range r.Streams {
		switch strings.ToLower(stream.CodecType) {
		case "video":
			if !info.HasVideo {
				info.Width = stream.Width
				info.Height = stream.Height
				info.FrameRate = parseRate(stream.AvgFrameRate)
			}
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
		if s := parseFloat(stream.Duration); s > longest {
			longest = s
		}
	}
	seconds := parseFloat(r.Format.Duration)
	if !(seconds > 0) || math.IsInf(seconds, 0) {
		seconds = longest
	}
	if seconds > 0 {
		info.Duration = time.Duration(math.Round(seconds*1e6)) * time.Microsecond
	}
	return info
}

// VideoStreamCount returns the number of video streams.
func (r Result) VideoStreamCount() int { return r.countType("video") }

// AudioStreamCount returns the number of audio streams.
func (r Result) AudioStreamCount() int { return r.countType("audio") }

func (r Result) countType(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration, 0 when absent and NaN when
// unparseable.
func (r Result) DurationSeconds() float64 {
	return parseFloat(r.Format.Duration)
}

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return output, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" || strings.EqualFold(cleaned, "N/A") {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

func parseRate(value string) float64 {
	num, den, ok := strings.Cut(strings.TrimSpace(value), "/")
	if !ok {
		return parseFloat(value)
	}
	n := parseFloat(num)
	d := parseFloat(den)
	if d == 0 || math.IsNaN(n) || math.IsNaN(d) {
		return 0
	}
	return n / d
}
