// Package recording implements the one human-in-the-loop stage. Screen
// recordings are captured by an operator outside demoforge; this stage only
// checks whether one has been supplied to the artifact store.
//
// When none exists it writes a recording brief (what to capture, scene by
// scene, with the generated narration when available) and fails with
// services.ErrMissingRecording, which suspends the run instead of aborting
// it. Supplying a recording and re-running resumes from this stage.
package recording
