package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"strings"
)

// Capabilities lists what an ffmpeg build can do.
type Capabilities struct {
	Encoders map[string]bool
	Filters  map[string]bool
}

// Missing returns the required encoders and filters this build lacks.
func (c Capabilities) Missing(encoders, filters []string) []string {
	var missing []string
	for _, name := range encoders {
		if !c.Encoders[name] {
			missing = append(missing, "encoder "+name)
		}
	}
	for _, name := range filters {
		if !c.Filters[name] {
			missing = append(missing, "filter "+name)
		}
	}
	return missing
}

// Capabilities queries the encoder and filter lists.
func (r *Runner) Capabilities(ctx context.Context) (Capabilities, error) {
	encoders, _, err := r.run(ctx, "-encoders")
	if err != nil {
		return Capabilities{}, err
	}
	filters, _, err := r.run(ctx, "-filters")
	if err != nil {
		return Capabilities{}, err
	}
	return Capabilities{
		Encoders: parseListing(encoders),
		Filters:  parseListing(filters),
	}, nil
}

// parseListing reads "-encoders"/"-filters" tables: a flags column followed
// by the component name. Legend lines ("V..... = Video") are skipped.
func parseListing(out []byte) map[string]bool {
	names := make(map[string]bool)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 || fields[1] == "=" || !isFlagColumn(fields[0]) {
			continue
		}
		names[fields[1]] = true
	}
	return names
}

func isFlagColumn(s string) bool {
	for _, r := range s {
		if r != '.' && r != '|' && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return s != ""
}
