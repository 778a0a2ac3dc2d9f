package script

import (
	"strings"
	"testing"
	"time"

	"demoforge/internal/testsupport"
)

const generatedBody = `## Scene 1: The problem
**Duration Target: 20 seconds | Estimated Word Count: 45 words**

Manual demos take a **full day** to produce. [PAUSE]

---

## Scene 2: Live walkthrough
**Duration Target: 50 seconds | Estimated Word Count: 120 words**

Upload the spec and **Launchpad** does the rest.

---

## Scene 3: Wrap up
Minutes instead of a day.`

func TestExtractNarrationStripsMarkup(t *testing.T) {
	spec := testsupport.SampleProduct(t)
	doc := Document(spec, generatedBody, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	got := ExtractNarration(doc)
	want := strings.Join([]string{
		"Manual demos take a full day to produce.",
		"Upload the spec and Launchpad does the rest.",
		"Minutes instead of a day.",
	}, "\n")
	if got != want {
		t.Fatalf("ExtractNarration =\n%s\nwant\n%s", got, want)
	}
}

func TestExtractNarrationKeepsFirstSceneWithoutHeader(t *testing.T) {
	doc := "# Launch demo\n\n## Scene 1: Intro\nHello there\n\n---\n\n## Scene 2: Outro\nGoodbye\n"
	got := ExtractNarration(doc)
	if got != "Hello there\nGoodbye" {
		t.Fatalf("ExtractNarration = %q", got)
	}
}

func TestSections(t *testing.T) {
	spec := testsupport.SampleProduct(t)
	doc := Document(spec, generatedBody, time.Now())

	sections := Sections(doc)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d", len(sections))
	}
	if sections[1].Number != 2 || sections[1].Title != "Live walkthrough" {
		t.Fatalf("unexpected section %+v", sections[1])
	}
	if strings.Contains(sections[2].Body, "Production Notes") {
		t.Fatalf("last section must stop before production notes: %q", sections[2].Body)
	}
}

func TestCountWords(t *testing.T) {
	if got := CountWords("It's 3 o'clock, let's ship v2!"); got != 6 {
		t.Fatalf("CountWords = %d, want 6", got)
	}
}
