// Package services defines shared utilities consumed by the pipeline stages and
// the external generation adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap and Classify helpers that turn
//     failures into the taxonomy shown in run reports (missing dependency,
//     missing recording, transient vs fatal generator failures, composition).
//   - HTTP status classification shared by the generator clients so retry
//     decisions stay uniform.
//
// Subpackages hold the thin adapters for the script (llm), voiceover (tts) and
// caption (transcribe) generation services.
package services
