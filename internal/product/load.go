package product

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"demoforge/internal/services"
)

const weightTolerance = 0.01

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("timerange", func(fl validator.FieldLevel) bool {
			_, _, err := parseRange(fl.Field().String())
			return err == nil
		})
		validate.RegisterStructValidation(judgingWeights, Judging{})
	})
	return validate
}

// Load reads, defaults, and validates a product specification.
func Load(path string) (*Spec, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: product specification path is required", services.ErrConfiguration)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read product specification: %w", services.ErrConfiguration, err)
	}
	spec, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if abs, err := filepath.Abs(path); err == nil {
		spec.Source = abs
	} else {
		spec.Source = path
	}
	spec.resolveAssets()
	return spec, nil
}

// Parse decodes and validates a specification document.
func Parse(data []byte) (*Spec, error) {
	spec := &Spec{}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(spec); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, fmt.Errorf("%w: unknown keys: %s", services.ErrValidation, strict.String())
		}
		return nil, fmt.Errorf("%w: parse product specification: %w", services.ErrValidation, err)
	}
	spec.applyDefaults()
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return spec, nil
}

// Validate checks struct tags and cross-field rules.
func (s *Spec) Validate() error {
	if err := validatorInstance().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return fmt.Errorf("%w: %s", services.ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	var prevEnd time.Duration
	for i, scene := range s.Demo.Scenes {
		start, end, _ := scene.Bounds()
		if i > 0 && start < prevEnd {
			return fmt.Errorf("%w: scene %d (%s) overlaps the previous scene", services.ErrValidation, i+1, scene.Name)
		}
		prevEnd = end
	}
	return nil
}

// Warnings reports plan inconsistencies that do not block a run.
func (s *Spec) Warnings() []string {
	var out []string
	if len(s.Demo.Scenes) == 0 {
		return nil
	}
	_, last, err := s.Demo.Scenes[len(s.Demo.Scenes)-1].Bounds()
	if err == nil && last > s.Demo.PlannedDuration() {
		out = append(out, fmt.Sprintf("scenes end at %s but the demo is planned for %s", last, s.Demo.PlannedDuration()))
	}
	return out
}

// DefaultVoiceID is a professional narrator voice used when none is set.
const DefaultVoiceID = "EaBs7G1VibMrNAuz2Na7"

func (s *Spec) applyDefaults() {
	if strings.TrimSpace(s.Voice.VoiceID) == "" {
		s.Voice.VoiceID = DefaultVoiceID
	}
	if s.Voice.PacingWPM == 0 {
		s.Voice.PacingWPM = 145
	}
	if s.Voice.Tone == "" {
		s.Voice.Tone = "Confident, professional, and enthusiastic"
	}
	if s.Voice.Stability == 0 && s.Voice.Clarity == 0 && s.Voice.Style == 0 {
		s.Voice.Stability = 0.5
		s.Voice.Clarity = 0.75
		s.Voice.Style = 0.25
	}
	j := &s.Judging
	if j.Technical.Weight == 0 && j.Impact.Weight == 0 && j.Innovation.Weight == 0 && j.Presentation.Weight == 0 {
		j.Technical.Weight = 0.40
		j.Impact.Weight = 0.20
		j.Innovation.Weight = 0.30
		j.Presentation.Weight = 0.10
	}
}

// resolveAssets makes relative asset paths relative to the spec file.
func (s *Spec) resolveAssets() {
	base := filepath.Dir(s.Source)
	resolve := func(p string) string {
		p = strings.TrimSpace(p)
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}
	s.Assets.BackgroundMusic = resolve(s.Assets.BackgroundMusic)
	s.Assets.ArchitectureDiagram = resolve(s.Assets.ArchitectureDiagram)
}

func judgingWeights(sl validator.StructLevel) {
	j := sl.Current().Interface().(Judging)
	total := j.Technical.Weight + j.Impact.Weight + j.Innovation.Weight + j.Presentation.Weight
	if math.Abs(total-1) > weightTolerance {
		sl.ReportError(j.Technical.Weight, "Weights", "Weights", "weightsum", fmt.Sprintf("%.2f", total))
	}
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Spec.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a URL"
	case "timerange":
		return fmt.Sprintf("%s %q must be a M:SS-M:SS range", field, fe.Value())
	case "weightsum":
		return fmt.Sprintf("judging weights must sum to 1.0 (got %s)", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
