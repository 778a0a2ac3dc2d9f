// Package ffprobe wraps ffprobe's JSON output.
//
// Probe reports the measured duration and stream layout of a media file. The
// composition engine trusts these numbers over any planned durations from the
// product specification.
package ffprobe
