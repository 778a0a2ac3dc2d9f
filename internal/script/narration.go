package script

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ruleLinePattern        = regexp.MustCompile(`(?m)^---[ \t]*$`)
	sceneHeaderPattern     = regexp.MustCompile(`(?m)^##\s+Scene\s+(\d+):[ \t]*(.*)$`)
	durationTargetPattern  = regexp.MustCompile(`\*\*Duration Target:[^\n]*?\*\*`)
	productionNotesPattern = regexp.MustCompile(`(?s)(?:---[ \t]*\n\s*)?##\s+Production Notes.*\z`)
	pausePattern           = regexp.MustCompile(`\[PAUSE\]`)
	boldPattern            = regexp.MustCompile(`\*\*(.*?)\*\*`)
	headingLinePattern     = regexp.MustCompile(`^#{1,6}\s`)
	wordPattern            = regexp.MustCompile(`[\p{L}\p{N}_']+`)
)

// Section is one "## Scene N: Title" block of a script.
type Section struct {
	Number int
	Title  string
	Body   string
}

// Sections splits a script into its scene blocks. A block ends at the next
// level-two heading or the end of the document.
func Sections(doc string) []Section {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	headers := sceneHeaderPattern.FindAllStringSubmatchIndex(doc, -1)
	out := make([]Section, 0, len(headers))
	for i, h := range headers {
		number, _ := strconv.Atoi(doc[h[2]:h[3]])
		end := len(doc)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		body := doc[h[1]:end]
		if idx := strings.Index(body, "\n## "); idx >= 0 {
			body = body[:idx]
		}
		out = append(out, Section{
			Number: number,
			Title:  strings.TrimSpace(doc[h[4]:h[5]]),
			Body:   strings.TrimSpace(body),
		})
	}
	return out
}

// ExtractNarration reduces a script document to the words meant to be
// spoken: metadata header, scene headings, duration targets, production
// notes, pause markers, rules, and bold markup are removed, and blank lines
// are dropped.
func ExtractNarration(doc string) string {
	text := strings.ReplaceAll(doc, "\r\n", "\n")
	text = stripFrontMatter(text)
	text = productionNotesPattern.ReplaceAllString(text, "")
	text = sceneHeaderPattern.ReplaceAllString(text, "")
	text = durationTargetPattern.ReplaceAllString(text, "")
	text = pausePattern.ReplaceAllString(text, "")
	text = boldPattern.ReplaceAllString(text, "$1")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || isRule(line) || headingLinePattern.MatchString(line) {
			continue
		}
		kept = append(kept, strings.Join(strings.Fields(line), " "))
	}
	return strings.Join(kept, "\n")
}

// CountWords counts spoken words in narration text.
func CountWords(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// stripFrontMatter drops a leading "# Title" block up to its first rule,
// unless a scene heading appears before that rule.
func stripFrontMatter(text string) string {
	trimmed := strings.TrimLeft(text, " \t\n")
	if !strings.HasPrefix(trimmed, "# ") {
		return text
	}
	loc := ruleLinePattern.FindStringIndex(trimmed)
	if loc == nil || strings.Contains(trimmed[:loc[0]], "\n## ") {
		return text
	}
	return trimmed[loc[1]:]
}

func isRule(line string) bool {
	if len(line) < 3 {
		return false
	}
	return strings.Trim(line, "-") == "" || strings.Trim(line, "*") == "" || strings.Trim(line, "_") == ""
}
