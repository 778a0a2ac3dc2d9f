// Package composition renders the final demo video.
//
// A render probes the recording and narration, builds an immutable Timeline
// whose length is the narration's measured duration, conforms the recording
// (trim or hold the last frame) and the background music (loop and cut) to
// that length, ducks the background under the narration, burns in captions,
// and encodes one MP4. Output is written to a reserved temp path in the
// artifact store and only committed as video_final after the rendered file
// probes as playable, so a failed or interrupted render leaves nothing
// behind.
//
// Stage adapts the engine to the pipeline's stage contract.
package composition
