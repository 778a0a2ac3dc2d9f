package subtitles

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Cue is one timed caption line.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// ParseSRT decodes SubRip content. Blocks without a valid timing line are
// skipped; an input with no valid cues is an error.
func ParseSRT(data []byte) ([]Cue, error) {
	normalized := strings.ReplaceAll(string(data), "\r\n", "\n")
	normalized = strings.TrimPrefix(normalized, "\ufeff")
	blocks := splitBlocks(normalized)
	cues := make([]Cue, 0, len(blocks))
	for _, block := range blocks {
		cue, ok := parseBlock(block)
		if !ok {
			continue
		}
		cues = append(cues, cue)
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("srt: no valid cues")
	}
	return cues, nil
}

func parseBlock(block string) (Cue, bool) {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "-->") {
			continue
		}
		start, end, ok := strings.Cut(line, "-->")
		if !ok {
			return Cue{}, false
		}
		startTS, err := parseSRTTimestamp(start)
		if err != nil {
			return Cue{}, false
		}
		// Position hints ("X1:...") may trail the end timestamp.
		endFields := strings.Fields(end)
		if len(endFields) == 0 {
			return Cue{}, false
		}
		endTS, err := parseSRTTimestamp(endFields[0])
		if err != nil {
			return Cue{}, false
		}
		cue := Cue{Start: startTS, End: endTS}
		if i > 0 {
			cue.Index, _ = strconv.Atoi(strings.TrimSpace(lines[i-1]))
		}
		text := make([]string, 0, len(lines)-i-1)
		for _, l := range lines[i+1:] {
			if trimmed := strings.TrimSpace(l); trimmed != "" {
				text = append(text, trimmed)
			}
		}
		cue.Text = strings.Join(text, "\n")
		return cue, true
	}
	return Cue{}, false
}

// FormatSRT encodes cues as SubRip, numbering them from 1.
func FormatSRT(cues []Cue) []byte {
	var b strings.Builder
	for i, cue := range cues {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n", i+1, FormatSRTTimestamp(cue.Start), FormatSRTTimestamp(cue.End), cue.Text)
	}
	return []byte(b.String())
}

// FormatSRTTimestamp renders HH:MM:SS,mmm.
func FormatSRTTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	h := ms / 3_600_000
	m := (ms / 60_000) % 60
	s := (ms / 1000) % 60
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms%1000)
}

// Normalize orders cues by start time, drops empty or zero-length cues, trims
// overlaps so each cue ends no later than the next begins, and renumbers.
func Normalize(cues []Cue) []Cue {
	out := make([]Cue, 0, len(cues))
	for _, cue := range cues {
		cue.Text = strings.TrimSpace(cue.Text)
		if cue.Text == "" || cue.End <= cue.Start || cue.Start < 0 {
			continue
		}
		out = append(out, cue)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	kept := out[:0]
	for i := range out {
		if i+1 < len(out) && out[i].End > out[i+1].Start {
			out[i].End = out[i+1].Start
		}
		if out[i].End > out[i].Start {
			kept = append(kept, out[i])
		}
	}
	for i := range kept {
		kept[i].Index = i + 1
	}
	return kept
}

// LastEnd returns the latest cue end.
func LastEnd(cues []Cue) time.Duration {
	var last time.Duration
	for _, cue := range cues {
		if cue.End > last {
			last = cue.End
		}
	}
	return last
}

// LastCueEnd reads a caption file (SRT or ASS) and returns its last cue end.
func LastCueEnd(path string) (time.Duration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read captions: %w", err)
	}
	if IsASS(data) {
		cues, err := ParseASS(data)
		if err != nil {
			return 0, err
		}
		return LastEnd(cues), nil
	}
	cues, err := ParseSRT(data)
	if err != nil {
		return 0, err
	}
	return LastEnd(cues), nil
}

func splitBlocks(content string) []string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n\n")
}

func parseSRTTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	// Some generators emit a period before the milliseconds.
	value = strings.ReplaceAll(value, ".", ",")
	clock, frac, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	switch len(frac) {
	case 1:
		millis *= 100
	case 2:
		millis *= 10
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	return total + time.Duration(millis)*time.Millisecond, nil
}
