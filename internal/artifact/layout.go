package artifact

import (
	"path/filepath"

	"demoforge/internal/stage"
)

var fileNames = map[stage.Key]string{
	{Stage: stage.Script, Kind: stage.KindScriptText}:        "voiceover_script.md",
	{Stage: stage.Voiceover, Kind: stage.KindAudio}:          "narration.mp3",
	{Stage: stage.Captions, Kind: stage.KindCaptionSRT}:      "captions.srt",
	{Stage: stage.Captions, Kind: stage.KindCaptionStyled}:   "captions_styled.ass",
	{Stage: stage.Recording, Kind: stage.KindVideoRaw}:       "screen_recording.media",
	{Stage: stage.Recording, Kind: stage.KindRecordingBrief}: "recording_brief.md",
	{Stage: stage.Composite, Kind: stage.KindVideoFinal}:     "final.mp4",
}

// FileName returns the deterministic file name for an artifact.
func FileName(name stage.Name, kind stage.Kind) string {
	if fn, ok := fileNames[stage.Key{Stage: name, Kind: kind}]; ok {
		return fn
	}
	return string(kind) + ".bin"
}

// PathFor computes the artifact location under root.
func PathFor(root string, name stage.Name, kind stage.Kind) string {
	return filepath.Join(root, string(name), FileName(name, kind))
}
