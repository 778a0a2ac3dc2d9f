package ffmpeg

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	reMeanVolume = regexp.MustCompile(`mean_volume:\s*(-?[0-9.]+|-inf) dB`)
	reMaxVolume  = regexp.MustCompile(`max_volume:\s*(-?[0-9.]+|-inf) dB`)
)

// Volume is a volumedetect measurement in dBFS.
type Volume struct {
	MeanDB float64
	MaxDB  float64
}

// MeanVolume measures the first audio stream of path. A non-empty filter
// (for example a bandpass) is applied before measurement.
func (r *Runner) MeanVolume(ctx context.Context, path, filter string) (Volume, error) {
	chain := "volumedetect"
	if f := strings.TrimSpace(filter); f != "" {
		chain = f + "," + chain
	}
	_, stderr, err := r.run(ctx, "-i", path, "-map", "0:a:0", "-af", chain, "-f", "null", "-")
	if err != nil {
		return Volume{}, err
	}
	return ParseVolume(string(stderr))
}

// ParseVolume extracts volumedetect output.
func ParseVolume(stderr string) (Volume, error) {
	mean, err := matchDB(reMeanVolume, stderr)
	if err != nil {
		return Volume{}, fmt.Errorf("parse mean_volume: %w", err)
	}
	peak, err := matchDB(reMaxVolume, stderr)
	if err != nil {
		return Volume{}, fmt.Errorf("parse max_volume: %w", err)
	}
	return Volume{MeanDB: mean, MaxDB: peak}, nil
}

func matchDB(re *regexp.Regexp, text string) (float64, error) {
	matches := re.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("no measurement in output")
	}
	value := matches[len(matches)-1][1]
	if value == "-inf" {
		return -144, nil
	}
	return strconv.ParseFloat(value, 64)
}
