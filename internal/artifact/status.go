package artifact

import "demoforge/internal/stage"

// Entry describes one known artifact slot for status listings.
type Entry struct {
	Ref
	Present bool
}

// Catalog lists every artifact slot produced by the pipeline, in stage order.
func Catalog() []stage.Key {
	return []stage.Key{
		{Stage: stage.Script, Kind: stage.KindScriptText},
		{Stage: stage.Voiceover, Kind: stage.KindAudio},
		{Stage: stage.Captions, Kind: stage.KindCaptionSRT},
		{Stage: stage.Captions, Kind: stage.KindCaptionStyled},
		{Stage: stage.Recording, Kind: stage.KindVideoRaw},
		{Stage: stage.Recording, Kind: stage.KindRecordingBrief},
		{Stage: stage.Composite, Kind: stage.KindVideoFinal},
	}
}

// List reports the state of every catalog slot.
func (s *Store) List() []Entry {
	keys := Catalog()
	out := make([]Entry, 0, len(keys))
	for _, key := range keys {
		if ref, ok := s.Get(key.Stage, key.Kind); ok {
			out = append(out, Entry{Ref: ref, Present: true})
			continue
		}
		out = append(out, Entry{Ref: Ref{Stage: key.Stage, Kind: key.Kind, Path: s.Path(key.Stage, key.Kind)}})
	}
	return out
}
