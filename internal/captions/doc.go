// Package captions implements the caption stage: it transcribes the stored
// narration, cleans transcription noise, clamps cues to the narration length,
// and stores both a SubRip file and a styled ASS rendition sized for the
// output canvas.
//
// When the transcription service returns plain text instead of timed cues,
// the words are spread evenly across the probed narration duration.
package captions
