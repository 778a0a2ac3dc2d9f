package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeComposition()
	c.normalizeScript()
	c.normalizeVoiceover()
	c.normalizeCaptions()
	c.normalizeRetry()
	c.normalizeNotifications()
	c.normalizeTracing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.RunRoot) == "" {
		c.Paths.RunRoot = defaultRunRoot
	}
	if c.Paths.RunRoot, err = expandPath(c.Paths.RunRoot); err != nil {
		return fmt.Errorf("paths.run_root: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeComposition() {
	comp := &c.Composition
	if comp.DuckingDB < 0 {
		comp.DuckingDB = -comp.DuckingDB
	}
	comp.VideoCodec = strings.TrimSpace(comp.VideoCodec)
	if comp.VideoCodec == "" {
		comp.VideoCodec = defaultVideoCodec
	}
	comp.Preset = strings.TrimSpace(comp.Preset)
	if comp.Preset == "" {
		comp.Preset = defaultPreset
	}
	comp.AudioCodec = strings.TrimSpace(comp.AudioCodec)
	if comp.AudioCodec == "" {
		comp.AudioCodec = defaultAudioCodec
	}
	comp.AudioBitrate = strings.TrimSpace(comp.AudioBitrate)
	if comp.AudioBitrate == "" {
		comp.AudioBitrate = defaultAudioBitrate
	}
	comp.FFmpegBinary = strings.TrimSpace(comp.FFmpegBinary)
	if comp.FFmpegBinary == "" {
		comp.FFmpegBinary = defaultFFmpegBinary
	}
	comp.FFprobeBinary = strings.TrimSpace(comp.FFprobeBinary)
	if comp.FFprobeBinary == "" {
		comp.FFprobeBinary = defaultFFprobeBinary
	}
}

func (c *Config) normalizeScript() {
	c.Script.APIKey = firstNonEmpty(c.Script.APIKey, lookupEnv("DEMOFORGE_LLM_API_KEY", "OPENAI_API_KEY"))
	c.Script.BaseURL = strings.TrimSpace(c.Script.BaseURL)
	if c.Script.BaseURL == "" {
		c.Script.BaseURL = defaultLLMBaseURL
	}
	c.Script.Model = strings.TrimSpace(c.Script.Model)
	if c.Script.Model == "" {
		c.Script.Model = defaultLLMModel
	}
	c.Script.Referer = strings.TrimSpace(c.Script.Referer)
	c.Script.Title = strings.TrimSpace(c.Script.Title)
	if c.Script.MaxTokens <= 0 {
		c.Script.MaxTokens = defaultLLMMaxTokens
	}
	if c.Script.TimeoutSeconds <= 0 {
		c.Script.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeVoiceover() {
	c.Voiceover.APIKey = firstNonEmpty(c.Voiceover.APIKey, lookupEnv("ELEVENLABS_API_KEY"))
	c.Voiceover.BaseURL = strings.TrimSpace(c.Voiceover.BaseURL)
	if c.Voiceover.BaseURL == "" {
		c.Voiceover.BaseURL = defaultTTSBaseURL
	}
	c.Voiceover.ModelID = strings.TrimSpace(c.Voiceover.ModelID)
	if c.Voiceover.ModelID == "" {
		c.Voiceover.ModelID = defaultTTSModelID
	}
	c.Voiceover.OutputFormat = strings.TrimSpace(c.Voiceover.OutputFormat)
	if c.Voiceover.OutputFormat == "" {
		c.Voiceover.OutputFormat = defaultTTSOutputFormat
	}
	if c.Voiceover.MaxChars <= 0 {
		c.Voiceover.MaxChars = defaultTTSMaxChars
	}
	if c.Voiceover.TimeoutSeconds <= 0 {
		c.Voiceover.TimeoutSeconds = defaultTTSTimeoutSeconds
	}
}

func (c *Config) normalizeCaptions() {
	c.Captions.APIKey = firstNonEmpty(c.Captions.APIKey, lookupEnv("DEMOFORGE_TRANSCRIBE_API_KEY", "OPENAI_API_KEY"))
	c.Captions.BaseURL = strings.TrimSpace(c.Captions.BaseURL)
	if c.Captions.BaseURL == "" {
		c.Captions.BaseURL = defaultTranscribeBaseURL
	}
	c.Captions.Model = strings.TrimSpace(c.Captions.Model)
	if c.Captions.Model == "" {
		c.Captions.Model = defaultTranscribeModel
	}
	c.Captions.Language = strings.ToLower(strings.TrimSpace(c.Captions.Language))
	if c.Captions.TimeoutSeconds <= 0 {
		c.Captions.TimeoutSeconds = defaultTranscribeTimeoutSeconds
	}
	if c.Captions.WordsPerCue <= 0 {
		c.Captions.WordsPerCue = defaultWordsPerCue
	}
}

func (c *Config) normalizeRetry() {
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = 1
	}
	if c.Retry.InitialDelayMS <= 0 {
		c.Retry.InitialDelayMS = defaultRetryInitialDelayMS
	}
	if c.Retry.MaxDelayMS < c.Retry.InitialDelayMS {
		c.Retry.MaxDelayMS = c.Retry.InitialDelayMS
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNotifyTimeoutSeconds
	}
}

func (c *Config) normalizeTracing() {
	c.Tracing.Endpoint = strings.TrimSpace(c.Tracing.Endpoint)
	c.Tracing.ServiceName = strings.TrimSpace(c.Tracing.ServiceName)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaultTracingServiceName
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.StageOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.StageOverrides))
		for stage, level := range c.Logging.StageOverrides {
			key := strings.ToLower(strings.TrimSpace(stage))
			if key == "" {
				continue
			}
			overrides[key] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.StageOverrides = overrides
	}
}

func lookupEnv(keys ...string) string {
	for _, key := range keys {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
