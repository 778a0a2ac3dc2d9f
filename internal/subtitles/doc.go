// Package subtitles models timed caption text.
//
// It parses and writes SubRip (SRT) cues, cleans transcription noise, derives
// styled Advanced SubStation (ASS) files for burn-in, and reports the end of
// the last cue so composition can compare caption timing against the
// narration length.
package subtitles
