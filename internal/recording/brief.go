package recording

import (
	"fmt"
	"strings"

	"demoforge/internal/product"
	"demoforge/internal/script"
)

// Brief describes what the operator should capture.
type Brief struct {
	Spec *product.Spec
	// Narration maps scene numbers to narration text, when a script exists.
	Narration map[int]string
	Width     int
	Height    int
	FPS       int
	// Destination is where the recording will be stored once supplied.
	Destination string
}

// NarrationByScene extracts per-scene narration from a script document.
func NarrationByScene(doc string) map[int]string {
	out := make(map[int]string)
	for _, sec := range script.Sections(doc) {
		if text := script.ExtractNarration(sec.Body); text != "" {
			out[sec.Number] = text
		}
	}
	return out
}

// Markdown renders the brief.
func (b Brief) Markdown() string {
	var sb strings.Builder
	info := b.Spec.Product
	fmt.Fprintf(&sb, "# Recording Brief: %s\n\n", info.Name)
	fmt.Fprintf(&sb, "**Product URL:** %s  \n", info.URL)
	if info.Repository != "" {
		fmt.Fprintf(&sb, "**Repository:** %s  \n", info.Repository)
	}
	fmt.Fprintf(&sb, "**Target length:** %d seconds  \n", b.Spec.Demo.DurationSeconds)
	if b.Width > 0 && b.Height > 0 {
		fmt.Fprintf(&sb, "**Capture size:** %dx%d", b.Width, b.Height)
		if b.FPS > 0 {
			fmt.Fprintf(&sb, " at %d fps", b.FPS)
		}
		sb.WriteString("  \n")
	}
	sb.WriteString("\nThe final video is cut to the narration length. A short recording holds its last frame; a long one is trimmed.\n\n")

	for i, scene := range b.Spec.Demo.Scenes {
		fmt.Fprintf(&sb, "## Scene %d: %s (%s, %ds)\n\n", i+1, scene.Name, scene.Duration, int(scene.Length().Seconds()))
		fmt.Fprintf(&sb, "**Objective:** %s\n\n", scene.Objective)
		if scene.Visuals != "" {
			fmt.Fprintf(&sb, "**On screen:** %s\n\n", scene.Visuals)
		}
		if len(scene.Actions) > 0 {
			sb.WriteString("**Actions:**\n")
			for n, action := range scene.Actions {
				fmt.Fprintf(&sb, "%d. %s\n", n+1, action)
			}
			sb.WriteString("\n")
		}
		if text := b.Narration[i+1]; text != "" {
			sb.WriteString("**Narration:**\n")
			for _, line := range strings.Split(text, "\n") {
				fmt.Fprintf(&sb, "> %s\n", line)
			}
			sb.WriteString("\n")
		}
	}

	sb.WriteString("## When you are done\n\n")
	sb.WriteString("Supply the file with `demoforge run --product <spec> --recording <file>`")
	if b.Destination != "" {
		fmt.Fprintf(&sb, ", or place it at `%s` and re-run", b.Destination)
	}
	sb.WriteString(".\n")
	return sb.String()
}
