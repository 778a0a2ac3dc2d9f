package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var stageNames = map[string]bool{
	"script":    true,
	"voiceover": true,
	"captions":  true,
	"recording": true,
	"composite": true,
}

// Validate ensures the configuration is usable. Generator credentials are not
// checked here.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateComposition(); err != nil {
		return err
	}
	if err := c.validateGenerators(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.RunRoot) == "" {
		return errors.New("paths.run_root must be set")
	}
	return nil
}

func (c *Config) validateComposition() error {
	comp := c.Composition
	if err := ensurePositiveMap(map[string]int{
		"composition.width":       comp.Width,
		"composition.height":      comp.Height,
		"composition.fps":         comp.FPS,
		"composition.sample_rate": comp.SampleRate,
	}); err != nil {
		return err
	}
	if comp.Width%2 != 0 || comp.Height%2 != 0 {
		return fmt.Errorf("composition canvas %dx%d must have even dimensions", comp.Width, comp.Height)
	}
	if comp.DuckingDB == 0 {
		return errors.New("composition.ducking_db must be non-zero; background music must sit below the narration")
	}
	if comp.ToleranceSeconds < 0 {
		return errors.New("composition.tolerance_seconds must not be negative")
	}
	if comp.CRF < 0 || comp.CRF > 51 {
		return errors.New("composition.crf must be between 0 and 51")
	}
	return nil
}

func (c *Config) validateGenerators() error {
	if c.Script.Temperature < 0 || c.Script.Temperature > 2 {
		return errors.New("script.temperature must be between 0 and 2")
	}
	if c.Voiceover.MaxChars < 100 {
		return errors.New("voiceover.max_chars must be at least 100")
	}
	if c.Retry.MaxAttempts > 20 {
		return errors.New("retry.max_attempts must be 20 or fewer")
	}
	return nil
}

func (c *Config) validateLogging() error {
	var unknown []string
	for stage, level := range c.Logging.StageOverrides {
		if !stageNames[stage] {
			unknown = append(unknown, stage)
			continue
		}
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("logging.stage_overrides.%s: unsupported level %q", stage, level)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("logging.stage_overrides: unknown stage(s) %s", strings.Join(unknown, ", "))
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
