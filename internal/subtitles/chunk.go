package subtitles

import (
	"strings"
	"time"
)

// DefaultWordsPerCue keeps cues readable at typical narration pacing.
const DefaultWordsPerCue = 8

// CuesFromText spreads plain transcript text evenly over total, wordsPerCue
// words at a time. It is the fallback when a transcription service returns
// text without timings.
func CuesFromText(text string, total time.Duration, wordsPerCue int) []Cue {
	words := strings.Fields(text)
	if len(words) == 0 || total <= 0 {
		return nil
	}
	if wordsPerCue <= 0 {
		wordsPerCue = DefaultWordsPerCue
	}
	perWord := total / time.Duration(len(words))
	cues := make([]Cue, 0, len(words)/wordsPerCue+1)
	for i := 0; i < len(words); i += wordsPerCue {
		j := min(i+wordsPerCue, len(words))
		end := perWord * time.Duration(j)
		if j == len(words) {
			end = total
		}
		cues = append(cues, Cue{
			Index: len(cues) + 1,
			Start: perWord * time.Duration(i),
			End:   end,
			Text:  strings.Join(words[i:j], " "),
		})
	}
	return cues
}
