package subtitles

import (
	"bufio"
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Style is the single ASS style applied to every cue.
type Style struct {
	Font         string
	Size         int
	Primary      string // &HAABBGGRR
	Outline      string
	Back         string
	Bold         bool
	OutlineWidth float64
	Shadow       float64
	Alignment    int // numpad layout, 2 = bottom center
	MarginH      int
	MarginV      int
}

// DefaultStyle returns white outlined bottom-centered text sized for a canvas
// of the given height.
func DefaultStyle(height int) Style {
	if height <= 0 {
		height = 1080
	}
	scale := float64(height) / 1080
	return Style{
		Font:         "Montserrat Bold",
		Size:         scaled(48, scale),
		Primary:      "&H00FFFFFF",
		Outline:      "&H00000000",
		Back:         "&H80000000",
		Bold:         true,
		OutlineWidth: 2,
		Shadow:       1,
		Alignment:    2,
		MarginH:      scaled(10, scale),
		MarginV:      scaled(80, scale),
	}
}

func scaled(v int, scale float64) int {
	out := int(math.Round(float64(v) * scale))
	if out < 1 {
		return 1
	}
	return out
}

// FormatASS renders cues as an ASS script whose play resolution matches the
// output canvas, so libass does not rescale the style.
func FormatASS(cues []Cue, style Style, width, height int, title string) []byte {
	if strings.TrimSpace(title) == "" {
		title = "Narration"
	}
	bold := 0
	if style.Bold {
		bold = -1
	}
	var b strings.Builder
	b.WriteString("[Script Info]\n")
	fmt.Fprintf(&b, "Title: %s\n", title)
	b.WriteString("ScriptType: v4.00+\nWrapStyle: 0\n")
	fmt.Fprintf(&b, "PlayResX: %d\nPlayResY: %d\n", width, height)
	b.WriteString("ScaledBorderAndShadow: yes\n\n")
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Default,%s,%d,%s,&H000000FF,%s,%s,%d,0,0,0,100,100,0,0,1,%s,%s,%d,%d,%d,%d,1\n\n",
		style.Font, style.Size, style.Primary, style.Outline, style.Back, bold,
		trimFloat(style.OutlineWidth), trimFloat(style.Shadow), style.Alignment,
		style.MarginH, style.MarginH, style.MarginV)
	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, cue := range cues {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Default,,0,0,0,,%s\n",
			FormatASSTimestamp(cue.Start), FormatASSTimestamp(cue.End), escapeASSText(cue.Text))
	}
	return []byte(b.String())
}

// FormatASSTimestamp renders H:MM:SS.cc. Centiseconds are truncated.
func FormatASSTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	cs := d.Milliseconds() / 10
	h := cs / 360_000
	m := (cs / 6000) % 60
	s := (cs / 100) % 60
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, s, cs%100)
}

// IsASS reports whether data looks like an ASS/SSA script.
func IsASS(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(head, []byte("[Script Info]"))
}

// ParseASS extracts Dialogue events.
func ParseASS(data []byte) ([]Cue, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var cues []Cue
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		rest, ok := strings.CutPrefix(line, "Dialogue:")
		if !ok {
			continue
		}
		fields := strings.SplitN(strings.TrimSpace(rest), ",", 10)
		if len(fields) < 10 {
			continue
		}
		start, err := parseASSTimestamp(fields[1])
		if err != nil {
			continue
		}
		end, err := parseASSTimestamp(fields[2])
		if err != nil {
			continue
		}
		cues = append(cues, Cue{Index: len(cues) + 1, Start: start, End: end, Text: strings.ReplaceAll(fields[9], `\N`, "\n")})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ass: %w", err)
	}
	if len(cues) == 0 {
		return nil, fmt.Errorf("ass: no dialogue events")
	}
	return cues, nil
}

func parseASSTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	clock, frac, ok := strings.Cut(value, ".")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	h, errH := strconv.Atoi(hms[0])
	m, errM := strconv.Atoi(hms[1])
	s, errS := strconv.Atoi(hms[2])
	cs, errC := strconv.Atoi(frac)
	if errH != nil || errM != nil || errS != nil || errC != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second + time.Duration(cs)*10*time.Millisecond, nil
}

func escapeASSText(text string) string {
	r := strings.NewReplacer("\r\n", `\N`, "\n", `\N`, "{", "(", "}", ")")
	return r.Replace(strings.TrimSpace(text))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
