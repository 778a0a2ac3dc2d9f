package script

import (
	"fmt"
	"strings"
	"time"

	"demoforge/internal/product"
)

const productionNotes = `## Production Notes

- Review timing for each scene (read aloud to verify)
- Adjust pacing if any scene exceeds its allocated duration
- Emphasize **bolded terms** during voiceover recording
- Respect [PAUSE] markers for visual demonstrations
`

// Document wraps generated narration in the stored script layout: a metadata
// header, the body, and production notes. ExtractNarration removes both
// wrappers again.
func Document(spec *product.Spec, body string, generated time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Voiceover Script: %s\n\n", spec.Product.Name)
	fmt.Fprintf(&b, "**Generated:** %s  \n", generated.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "**Target Duration:** %d seconds  \n", spec.Demo.DurationSeconds)
	fmt.Fprintf(&b, "**Voice:** %s  \n", spec.Voice.VoiceID)
	fmt.Fprintf(&b, "**Pacing:** %d WPM  \n", spec.Voice.PacingWPM)
	fmt.Fprintf(&b, "**Tone:** %s\n\n---\n\n", spec.Voice.Tone)
	b.WriteString(strings.TrimSpace(body))
	b.WriteString("\n\n---\n\n")
	b.WriteString(productionNotes)
	return b.String()
}
