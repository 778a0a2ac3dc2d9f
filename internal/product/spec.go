package product

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spec is a parsed product specification.
type Spec struct {
	Product Info    `toml:"product" validate:"required"`
	Demo    Demo    `toml:"demo" validate:"required"`
	Judging Judging `toml:"judging"`
	Voice   Voice   `toml:"voice"`
	Assets  Assets  `toml:"assets"`
	// Source is the absolute path the spec was loaded from.
	Source string `toml:"-"`
}

// Info describes the product being demoed.
type Info struct {
	Name       string `toml:"name" validate:"required"`
	Tagline    string `toml:"tagline" validate:"required"`
	URL        string `toml:"url" validate:"required,url"`
	Repository string `toml:"repository" validate:"omitempty,url"`
	Category   string `toml:"category" validate:"required"`
	Problem    string `toml:"problem" validate:"required"`
	Solution   string `toml:"solution" validate:"required"`
}

// Demo is the planned structure of the video.
type Demo struct {
	DurationSeconds int     `toml:"duration_seconds" validate:"required,min=10,max=1800"`
	Scenes          []Scene `toml:"scenes" validate:"required,min=1,dive"`
}

// Scene is one planned segment. Duration is a "M:SS-M:SS" range.
type Scene struct {
	Name      string   `toml:"name" validate:"required"`
	Duration  string   `toml:"duration" validate:"required,timerange"`
	Objective string   `toml:"objective" validate:"required"`
	Visuals   string   `toml:"visuals"`
	KeyPoints []string `toml:"key_points" validate:"dive,required"`
	Actions   []string `toml:"actions" validate:"dive,required"`
	Narration string   `toml:"narration"`
}

// Judging carries the scoring weights the script should optimize for.
type Judging struct {
	Technical    Criterion `toml:"technical_execution"`
	Impact       Criterion `toml:"potential_impact"`
	Innovation   Criterion `toml:"innovation"`
	Presentation Criterion `toml:"presentation"`
}

// Criterion is one weighted judging criterion.
type Criterion struct {
	Weight     float64  `toml:"weight" validate:"gte=0,lte=1"`
	Strategies []string `toml:"strategies"`
}

// Voice configures narration synthesis.
type Voice struct {
	VoiceID   string  `toml:"voice_id" validate:"required"`
	Tone      string  `toml:"tone"`
	PacingWPM int     `toml:"pacing_wpm" validate:"min=80,max=240"`
	Stability float64 `toml:"stability" validate:"gte=0,lte=1"`
	Clarity   float64 `toml:"clarity" validate:"gte=0,lte=1"`
	Style     float64 `toml:"style" validate:"gte=0,lte=1"`
}

// Assets are optional media the operator provides.
type Assets struct {
	BackgroundMusic     string `toml:"bgm_track"`
	ArchitectureDiagram string `toml:"architecture_diagram"`
}

var timeRangePattern = regexp.MustCompile(`^\s*(\d+):([0-5]\d)\s*-\s*(\d+):([0-5]\d)\s*$`)

// Bounds returns the scene start and end offsets.
func (s Scene) Bounds() (time.Duration, time.Duration, error) {
	return parseRange(s.Duration)
}

// Length returns the planned scene duration, or zero when the range is
// malformed.
func (s Scene) Length() time.Duration {
	start, end, err := s.Bounds()
	if err != nil {
		return 0
	}
	return end - start
}

// PlannedDuration is the overall target length.
func (d Demo) PlannedDuration() time.Duration {
	return time.Duration(d.DurationSeconds) * time.Second
}

// Weights returns the judging weights in a stable order.
func (j Judging) Weights() []NamedCriterion {
	return []NamedCriterion{
		{Name: "Technical Execution", Criterion: j.Technical},
		{Name: "Potential Impact", Criterion: j.Impact},
		{Name: "Innovation", Criterion: j.Innovation},
		{Name: "Presentation", Criterion: j.Presentation},
	}
}

// NamedCriterion pairs a criterion with its display name.
type NamedCriterion struct {
	Name string
	Criterion
}

// Slug is a filesystem-safe identifier derived from the product name.
func (s *Spec) Slug() string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s.Product.Name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "product"
	}
	return slug
}

func parseRange(value string) (time.Duration, time.Duration, error) {
	m := timeRangePattern.FindStringSubmatch(value)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid time range %q (want M:SS-M:SS)", value)
	}
	num := func(s string) time.Duration {
		n, _ := strconv.Atoi(s)
		return time.Duration(n)
	}
	start := num(m[1])*time.Minute + num(m[2])*time.Second
	end := num(m[3])*time.Minute + num(m[4])*time.Second
	if end <= start {
		return 0, 0, fmt.Errorf("time range %q ends before it starts", value)
	}
	return start, end, nil
}
