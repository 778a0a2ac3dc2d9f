package voiceover

import "strings"

// Chunk splits narration into pieces of at most limit bytes, breaking on line
// boundaries first, then sentence ends, then words. A single word longer
// than limit is emitted on its own.
func Chunk(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	var pieces []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(line) <= limit {
			pieces = append(pieces, line)
			continue
		}
		for _, sentence := range splitSentences(line) {
			if len(sentence) <= limit {
				pieces = append(pieces, sentence)
				continue
			}
			pieces = append(pieces, strings.Fields(sentence)...)
		}
	}
	return pack(pieces, limit)
}

func pack(pieces []string, limit int) []string {
	var chunks []string
	var current strings.Builder
	for _, piece := range pieces {
		if current.Len() > 0 && current.Len()+1+len(piece) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(piece)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

func splitSentences(line string) []string {
	var out []string
	start := 0
	for i := 0; i < len(line)-1; i++ {
		switch line[i] {
		case '.', '!', '?':
			if line[i+1] == ' ' {
				out = append(out, strings.TrimSpace(line[start:i+1]))
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(line[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}
