package stage

import "testing"

func TestOrderIndexes(t *testing.T) {
	want := []Name{Script, Voiceover, Captions, Recording, Composite}
	for i, name := range want {
		if got := name.Index(); got != i {
			t.Fatalf("%s.Index() = %d, want %d", name, got, i)
		}
	}
	if Name("bogus").Index() != -1 {
		t.Fatal("expected unknown stage to have index -1")
	}
}

func TestBefore(t *testing.T) {
	if !Script.Before(Composite) {
		t.Fatal("script should run before composite")
	}
	if Composite.Before(Composite) {
		t.Fatal("a stage is not strictly before itself")
	}
	if Name("bogus").Before(Composite) {
		t.Fatal("unknown stage must not order before anything")
	}
}

func TestParseName(t *testing.T) {
	got, err := ParseName("  VoiceOver ")
	if err != nil {
		t.Fatalf("ParseName: %v", err)
	}
	if got != Voiceover {
		t.Fatalf("ParseName = %q, want voiceover", got)
	}
	if _, err := ParseName("render"); err == nil {
		t.Fatal("expected error for unknown stage")
	}
}

func TestInputsPath(t *testing.T) {
	in := NewInputs(map[Key]string{
		{Stage: Voiceover, Kind: KindAudio}: "/tmp/a.mp3",
		{Stage: Captions, Kind: KindCaptionSRT}: "",
	})
	if p, ok := in.Path(Voiceover, KindAudio); !ok || p != "/tmp/a.mp3" {
		t.Fatalf("unexpected audio path %q %v", p, ok)
	}
	if _, ok := in.Path(Captions, KindCaptionSRT); ok {
		t.Fatal("empty path should be reported as missing")
	}
	if _, ok := in.Path(Script, KindScriptText); ok {
		t.Fatal("unresolved input should be missing")
	}
}
