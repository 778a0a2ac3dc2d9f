package stage

import (
	"fmt"
	"strings"
)

// Name identifies one pipeline stage. The declaration order of Order is the
// canonical execution sequence.
type Name string

const (
	Script    Name = "script"
	Voiceover Name = "voiceover"
	Captions  Name = "captions"
	Recording Name = "recording"
	Composite Name = "composite"
)

// Order lists every stage in execution order.
var Order = []Name{Script, Voiceover, Captions, Recording, Composite}

// Index returns the position of the stage in Order, or -1 when unknown.
func (n Name) Index() int {
	for i, candidate := range Order {
		if candidate == n {
			return i
		}
	}
	return -1
}

// Before reports whether n executes strictly before other.
func (n Name) Before(other Name) bool {
	a, b := n.Index(), other.Index()
	return a >= 0 && b >= 0 && a < b
}

// Valid reports whether n is a known stage.
func (n Name) Valid() bool { return n.Index() >= 0 }

func (n Name) String() string { return string(n) }

// ParseName resolves a user-supplied stage name.
func ParseName(value string) (Name, error) {
	name := Name(strings.ToLower(strings.TrimSpace(value)))
	if !name.Valid() {
		return "", fmt.Errorf("unknown stage %q (want one of %s)", value, joinNames(Order))
	}
	return name, nil
}

func joinNames(names []Name) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

// Kind identifies the type of artifact a stage produces.
type Kind string

const (
	KindScriptText    Kind = "script_text"
	KindAudio         Kind = "audio"
	KindCaptionSRT    Kind = "caption_srt"
	KindCaptionStyled Kind = "caption_styled"
	KindVideoRaw      Kind = "video_raw"
	KindVideoFinal    Kind = "video_final"
	// KindRecordingBrief is an auxiliary note written while waiting for a
	// recording. No stage declares it as an output.
	KindRecordingBrief Kind = "recording_brief"
)

// Key addresses one artifact by producing stage and kind.
type Key struct {
	Stage Name
	Kind  Kind
}

func (k Key) String() string { return string(k.Stage) + "/" + string(k.Kind) }

// Selector is a declared stage input. Optional inputs are passed through when
// present and never block a stage.
type Selector struct {
	Stage    Name
	Kind     Kind
	Optional bool
}

// Key returns the artifact address the selector resolves against.
func (s Selector) Key() Key { return Key{Stage: s.Stage, Kind: s.Kind} }

// Require builds a mandatory input selector.
func Require(stage Name, kind Kind) Selector {
	return Selector{Stage: stage, Kind: kind}
}

// Optional builds an input selector that may be absent.
func Optional(stage Name, kind Kind) Selector {
	return Selector{Stage: stage, Kind: kind, Optional: true}
}
