package script

import (
	"fmt"
	"math"
	"strings"

	"demoforge/internal/product"
)

const systemPrompt = `You are a technical demo scriptwriter. You write voiceover narration for product demo videos that are scored by judges.
The narration is read aloud by a speech synthesizer, so write only words meant to be spoken beneath each scene heading.
This is a technical showcase, not a sales pitch: explain how the product works, be specific about architecture and workflow, and use concrete numbers where the product information provides them.`

// BuildPrompt returns the system and user prompts for spec.
func BuildPrompt(spec *product.Spec) (string, string) {
	var b strings.Builder
	info := spec.Product

	b.WriteString("# Product Information\n")
	fmt.Fprintf(&b, "**Name:** %s\n", info.Name)
	fmt.Fprintf(&b, "**Tagline:** %s\n", info.Tagline)
	fmt.Fprintf(&b, "**Category:** %s\n", info.Category)
	fmt.Fprintf(&b, "**URL:** %s\n\n", info.URL)
	fmt.Fprintf(&b, "**Problem Being Solved:**\n%s\n\n", strings.TrimSpace(info.Problem))
	fmt.Fprintf(&b, "**Solution:**\n%s\n\n---\n\n", strings.TrimSpace(info.Solution))

	b.WriteString("# Judging Criteria (the script must address all of them)\n\n")
	for _, c := range spec.Judging.Weights() {
		fmt.Fprintf(&b, "## %s (%d%% weight)\n", c.Name, int(math.Round(c.Weight*100)))
		if len(c.Strategies) > 0 {
			b.WriteString("**Strategies to incorporate:**\n")
			for _, s := range c.Strategies {
				fmt.Fprintf(&b, "  - %s\n", strings.TrimSpace(s))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n\n")

	fmt.Fprintf(&b, "# Scene Breakdown (Total: %d seconds)\n\n", spec.Demo.DurationSeconds)
	for i, scene := range spec.Demo.Scenes {
		fmt.Fprintf(&b, "**Scene %d: %s**\n", i+1, scene.Name)
		fmt.Fprintf(&b, "- Duration: %s (%d seconds, about %d words)\n", scene.Duration,
			int(scene.Length().Seconds()), WordBudget(scene.Length().Seconds(), spec.Voice.PacingWPM))
		fmt.Fprintf(&b, "- Objective: %s\n", scene.Objective)
		if scene.Visuals != "" {
			fmt.Fprintf(&b, "- Visuals: %s\n", scene.Visuals)
		}
		if len(scene.KeyPoints) > 0 {
			b.WriteString("- Key Points to Cover:\n")
			for _, p := range scene.KeyPoints {
				fmt.Fprintf(&b, "  - %s\n", p)
			}
		}
		if scene.Narration != "" {
			fmt.Fprintf(&b, "- Suggested narration: %s\n", scene.Narration)
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n\n")

	b.WriteString("# Script Requirements\n\n")
	fmt.Fprintf(&b, "1. Tone: %s. Educational and confident, explaining HOW things work.\n", spec.Voice.Tone)
	fmt.Fprintf(&b, "2. Pacing: %d words per minute. Each scene MUST fit within its allocated duration.\n", spec.Voice.PacingWPM)
	b.WriteString("3. Technical depth: no vague marketing speak; be specific about APIs and workflow.\n")
	b.WriteString("4. Formatting: Markdown with one `## Scene N: Title` heading per scene, narration beneath it, " +
		"[PAUSE] markers where a visual needs time, and **bold** for key terms.\n\n")

	b.WriteString("# Output Format\n\n")
	b.WriteString("## Scene 1: [Scene Name]\n")
	b.WriteString("**Duration Target: [X] seconds | Estimated Word Count: [Y] words**\n\n")
	b.WriteString("[Narration text]\n\n---\n\n## Scene 2: [Scene Name]\n...\n\n")
	b.WriteString("Output only the script.")

	return systemPrompt, b.String()
}

// WordBudget converts a duration in seconds to a word count at wpm.
func WordBudget(seconds float64, wpm int) int {
	if wpm <= 0 || seconds <= 0 {
		return 0
	}
	return int(math.Floor(seconds * float64(wpm) / 60))
}
