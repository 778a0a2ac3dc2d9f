package subtitles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseSRT(t *testing.T) {
	raw := "\ufeff1\n00:00:01,000 --> 00:00:03.5 X1:10\nHello\nworld\n\nnot a cue\n\n2\n00:01:00,250 --> 00:01:02,000\nBye\n"
	cues, err := ParseSRT([]byte(raw))
	if err != nil {
		t.Fatalf("ParseSRT: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("cues = %d", len(cues))
	}
	if cues[0].Start != time.Second || cues[0].End != 3500*time.Millisecond {
		t.Fatalf("unexpected timing %+v", cues[0])
	}
	if cues[0].Text != "Hello\nworld" || cues[0].Index != 1 {
		t.Fatalf("unexpected cue %+v", cues[0])
	}
	if LastEnd(cues) != 62*time.Second {
		t.Fatalf("LastEnd = %v", LastEnd(cues))
	}
	if _, err := ParseSRT([]byte("garbage")); err == nil {
		t.Fatal("expected error for content without cues")
	}
}

func TestFormatSRTRoundTripsTimestamps(t *testing.T) {
	cues := []Cue{{Start: 0, End: 1500 * time.Millisecond, Text: "a"}, {Start: time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond, End: time.Hour + 2*time.Minute + 5*time.Second, Text: "b"}}
	out := string(FormatSRT(cues))
	want := "1\n00:00:00,000 --> 00:00:01,500\na\n\n2\n01:02:03,004 --> 01:02:05,000\nb\n"
	if out != want {
		t.Fatalf("FormatSRT =\n%q\nwant\n%q", out, want)
	}
}

func TestNormalize(t *testing.T) {
	cues := Normalize([]Cue{
		{Start: 4 * time.Second, End: 6 * time.Second, Text: "third"},
		{Start: 0, End: 3 * time.Second, Text: "first"},
		{Start: 2 * time.Second, End: 5 * time.Second, Text: "second"},
		{Start: 7 * time.Second, End: 7 * time.Second, Text: "zero"},
		{Start: 8 * time.Second, End: 9 * time.Second, Text: "  "},
	})
	if len(cues) != 3 {
		t.Fatalf("cues = %+v", cues)
	}
	if cues[0].End != 2*time.Second || cues[1].End != 4*time.Second {
		t.Fatalf("overlaps not trimmed: %+v", cues)
	}
	for i, cue := range cues {
		if cue.Index != i+1 {
			t.Fatalf("cue %d index = %d", i, cue.Index)
		}
	}
}

func TestFormatASS(t *testing.T) {
	cues := []Cue{{Start: 1234 * time.Millisecond, End: 61 * time.Second, Text: "Line {one}\nline two"}}
	out := FormatASS(cues, DefaultStyle(720), 1280, 720, "")
	text := string(out)
	for _, want := range []string{
		"PlayResX: 1280\nPlayResY: 720\n",
		"Style: Default,Montserrat Bold,32,&H00FFFFFF,&H000000FF,&H00000000,&H80000000,-1,0,0,0,100,100,0,0,1,2,1,2,7,7,53,1",
		"Dialogue: 0,0:00:01.23,0:01:01.00,Default,,0,0,0,,Line (one)\\Nline two",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("ASS output missing %q:\n%s", want, text)
		}
	}
	parsed, err := ParseASS(out)
	if err != nil {
		t.Fatalf("ParseASS: %v", err)
	}
	if len(parsed) != 1 || parsed[0].End != 61*time.Second || parsed[0].Start != 1230*time.Millisecond {
		t.Fatalf("parsed = %+v", parsed)
	}
}

func TestLastCueEndDetectsFormat(t *testing.T) {
	dir := t.TempDir()
	srt := filepath.Join(dir, "c.srt")
	ass := filepath.Join(dir, "c.ass")
	cues := []Cue{{Start: 0, End: 9 * time.Second, Text: "x"}}
	if err := os.WriteFile(srt, FormatSRT(cues), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(ass, FormatASS(cues, DefaultStyle(1080), 1920, 1080, "t"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{srt, ass} {
		end, err := LastCueEnd(path)
		if err != nil {
			t.Fatalf("LastCueEnd(%s): %v", path, err)
		}
		if end != 9*time.Second {
			t.Fatalf("LastCueEnd(%s) = %v", path, end)
		}
	}
}

func TestCuesFromText(t *testing.T) {
	text := "one two three four five six seven eight nine ten"
	cues := CuesFromText(text, 10*time.Second, 4)
	if len(cues) != 3 {
		t.Fatalf("cues = %d", len(cues))
	}
	if cues[0].Text != "one two three four" || cues[0].End != 4*time.Second {
		t.Fatalf("first cue %+v", cues[0])
	}
	if cues[2].End != 10*time.Second || cues[2].Text != "nine ten" {
		t.Fatalf("last cue %+v", cues[2])
	}
	if CuesFromText("", time.Second, 4) != nil {
		t.Fatal("expected nil for empty text")
	}
}
