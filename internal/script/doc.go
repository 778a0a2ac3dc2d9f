// Package script implements the first pipeline stage: it asks a language
// model for a scene-by-scene narration script, wraps the reply in a small
// metadata header, stores it as script/script_text, and reports scenes whose
// estimated read time exceeds the planned duration as stage warnings.
//
// The Markdown layout the prompt requests ("## Scene N: Title" sections,
// [PAUSE] markers, **bold** emphasis) is also what ExtractNarration strips
// before the voiceover stage synthesizes speech.
package script
