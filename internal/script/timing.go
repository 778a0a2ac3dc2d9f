package script

import (
	"fmt"
	"strings"
	"time"

	"demoforge/internal/product"
)

// SceneTiming is the estimated read time of one script section against the
// scene it was matched to.
type SceneTiming struct {
	Number    int
	Title     string
	Words     int
	Estimated time.Duration
	// Allocated is zero when no planned scene matched the section.
	Allocated time.Duration
}

// Over reports how far the estimate runs past the allocation.
func (s SceneTiming) Over() time.Duration {
	if s.Allocated <= 0 || s.Estimated <= s.Allocated {
		return 0
	}
	return s.Estimated - s.Allocated
}

// Timing summarizes the estimated read time of a script.
type Timing struct {
	Scenes     []SceneTiming
	TotalWords int
	Estimated  time.Duration
	Planned    time.Duration
}

// Analyze estimates read time at the spec's pacing.
func Analyze(doc string, spec *product.Spec) Timing {
	wpm := spec.Voice.PacingWPM
	timing := Timing{Planned: spec.Demo.PlannedDuration()}
	sections := Sections(doc)
	if len(sections) == 0 {
		timing.TotalWords = CountWords(ExtractNarration(doc))
		timing.Estimated = readTime(timing.TotalWords, wpm)
		return timing
	}
	for _, sec := range sections {
		words := CountWords(ExtractNarration(sec.Body))
		st := SceneTiming{
			Number:    sec.Number,
			Title:     sec.Title,
			Words:     words,
			Estimated: readTime(words, wpm),
		}
		if scene, ok := matchScene(spec.Demo.Scenes, sec); ok {
			st.Allocated = scene.Length()
		}
		timing.Scenes = append(timing.Scenes, st)
		timing.TotalWords += words
		timing.Estimated += st.Estimated
	}
	return timing
}

// Warnings lists the scenes and the total that read longer than planned.
func (t Timing) Warnings() []string {
	var out []string
	if len(t.Scenes) == 0 {
		out = append(out, `script has no "## Scene N:" sections; per-scene timing was not checked`)
	}
	for _, s := range t.Scenes {
		if over := s.Over(); over > 0 {
			out = append(out, fmt.Sprintf("scene %d (%s) reads in about %s, %s over its %s slot",
				s.Number, s.Title, seconds(s.Estimated), seconds(over), seconds(s.Allocated)))
		}
	}
	if t.Planned > 0 && t.Estimated > t.Planned {
		out = append(out, fmt.Sprintf("script reads in about %s, %s over the planned %s",
			seconds(t.Estimated), seconds(t.Estimated-t.Planned), seconds(t.Planned)))
	}
	return out
}

// matchScene prefers the scene at the section's number and falls back to a
// case-insensitive title match.
func matchScene(scenes []product.Scene, sec Section) (product.Scene, bool) {
	if sec.Number >= 1 && sec.Number <= len(scenes) {
		return scenes[sec.Number-1], true
	}
	title := strings.ToLower(sec.Title)
	if title == "" {
		return product.Scene{}, false
	}
	for _, scene := range scenes {
		if strings.Contains(strings.ToLower(scene.Name), title) {
			return scene, true
		}
	}
	return product.Scene{}, false
}

func readTime(words, wpm int) time.Duration {
	if wpm <= 0 || words <= 0 {
		return 0
	}
	return time.Duration(float64(words) / float64(wpm) * float64(time.Minute))
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
