// Package ffmpeg runs the ffmpeg binary and interprets its diagnostics.
//
// Runner captures stderr for every invocation so failures carry the tail of
// ffmpeg's own explanation. MeanVolume measures loudness through the
// volumedetect filter, and Capabilities lists the encoders and filters a
// build supports so missing pieces (libx264, libass) are reported before a
// render starts.
package ffmpeg
