package subtitles

import (
	"regexp"
	"strings"
)

// Transcription services emit sound annotations and stock sign-offs that were
// never narrated.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*[\[(][^\])]*[\])]\s*$`),
	regexp.MustCompile(`^\s*[♪♫]+[^a-zA-Z]*$`),
	regexp.MustCompile(`(?i)^\s*(thanks|thank you) for watching[.!]?\s*$`),
	regexp.MustCompile(`(?i)subtitles? by`),
}

var inlineAnnotation = regexp.MustCompile(`\s*[\[(](?i:music|applause|laughter|silence|inaudible|pause)[\])]\s*`)

// CleanStats reports the effects of cleanup.
type CleanStats struct {
	RemovedCues int
}

// Clean drops cues that carry only non-speech annotations and strips inline
// annotations from the rest.
func Clean(cues []Cue) ([]Cue, CleanStats) {
	var stats CleanStats
	out := make([]Cue, 0, len(cues))
	for _, cue := range cues {
		if isNoise(cue.Text) {
			stats.RemovedCues++
			continue
		}
		cue.Text = strings.TrimSpace(inlineAnnotation.ReplaceAllString(cue.Text, " "))
		if cue.Text == "" {
			stats.RemovedCues++
			continue
		}
		out = append(out, cue)
	}
	return out, stats
}

// CleanSRT cleans SubRip content and re-serializes it.
func CleanSRT(raw []byte) ([]byte, CleanStats, error) {
	cues, err := ParseSRT(raw)
	if err != nil {
		return nil, CleanStats{}, err
	}
	cleaned, stats := Clean(cues)
	return FormatSRT(Normalize(cleaned)), stats, nil
}

func isNoise(text string) bool {
	payload := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	if payload == "" {
		return true
	}
	for _, pattern := range noisePatterns {
		if pattern.MatchString(payload) {
			return true
		}
	}
	return false
}
