// Package voiceover implements the narration stage. It reduces the stored
// script to spoken text, synthesizes it in chunks that respect the speech
// service's per-request limit, and stores the concatenated audio as
// voiceover/audio.
package voiceover
