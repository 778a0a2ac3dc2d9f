package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// RunRoot holds one artifact store per product, keyed by product slug.
	RunRoot string `toml:"run_root"`
	LogDir  string `toml:"log_dir"`
}

// Composition contains render settings for the final video.
type Composition struct {
	Width            int     `toml:"width"`
	Height           int     `toml:"height"`
	FPS              int     `toml:"fps"`
	DuckingDB        float64 `toml:"ducking_db"`
	LevelMatch       bool    `toml:"level_match"`
	ToleranceSeconds float64 `toml:"tolerance_seconds"`
	VideoCodec       string  `toml:"video_codec"`
	Preset           string  `toml:"preset"`
	CRF              int     `toml:"crf"`
	AudioCodec       string  `toml:"audio_codec"`
	AudioBitrate     string  `toml:"audio_bitrate"`
	SampleRate       int     `toml:"sample_rate"`
	FFmpegBinary     string  `toml:"ffmpeg_binary"`
	FFprobeBinary    string  `toml:"ffprobe_binary"`
}

// Tolerance returns the drift tolerance as a duration.
func (c Composition) Tolerance() time.Duration {
	return time.Duration(c.ToleranceSeconds * float64(time.Second))
}

// Script contains the chat-completions settings used to write the script.
type Script struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Model          string  `toml:"model"`
	Referer        string  `toml:"referer"`
	Title          string  `toml:"title"`
	Temperature    float64 `toml:"temperature"`
	MaxTokens      int     `toml:"max_tokens"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
}

// Voiceover contains text-to-speech settings.
type Voiceover struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	ModelID        string `toml:"model_id"`
	OutputFormat   string `toml:"output_format"`
	MaxChars       int    `toml:"max_chars"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Captions contains transcription settings.
type Captions struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Language       string `toml:"language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	WordsPerCue    int    `toml:"words_per_cue"`
}

// Retry bounds generator retries inside each stage.
type Retry struct {
	MaxAttempts    int `toml:"max_attempts"`
	InitialDelayMS int `toml:"initial_delay_ms"`
	MaxDelayMS     int `toml:"max_delay_ms"`
}

// InitialDelay returns the first backoff interval.
func (r Retry) InitialDelay() time.Duration {
	return time.Duration(r.InitialDelayMS) * time.Millisecond
}

// MaxDelay returns the backoff ceiling.
func (r Retry) MaxDelay() time.Duration {
	return time.Duration(r.MaxDelayMS) * time.Millisecond
}

// Notifications configures ntfy alerts sent when a run finishes.
type Notifications struct {
	// NtfyTopic is the full topic URL; empty disables notifications.
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Tracing configures OpenTelemetry span export for runs and stages.
type Tracing struct {
	// Endpoint is an OTLP/HTTP collector host:port; empty disables tracing.
	Endpoint    string `toml:"endpoint"`
	Insecure    bool   `toml:"insecure"`
	ServiceName string `toml:"service_name"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// StageOverrides sets a minimum level per stage name, e.g. composite = "warn".
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for demoforge.
//
// Configuration sections by subsystem:
//   - Paths: run root and log directory
//   - Composition: canvas, ducking, drift tolerance, and encoder settings
//   - Script: chat-completions connection for script writing
//   - Voiceover: text-to-speech connection
//   - Captions: speech-to-text connection and caption pacing
//   - Retry: generator retry bounds shared by every stage
//   - Notifications: ntfy topic for run outcome alerts
//   - Tracing: OTLP collector for run and stage spans
//   - Logging: log format, level, and per-stage overrides
type Config struct {
	Paths         Paths         `toml:"paths"`
	Composition   Composition   `toml:"composition"`
	Script        Script        `toml:"script"`
	Voiceover     Voiceover     `toml:"voiceover"`
	Captions      Captions      `toml:"captions"`
	Retry         Retry         `toml:"retry"`
	Notifications Notifications `toml:"notifications"`
	Tracing       Tracing       `toml:"tracing"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/demoforge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("demoforge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the run root and log directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.RunRoot, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// RunDir returns the artifact store directory for a product slug.
func (c *Config) RunDir(slug string) string {
	return filepath.Join(c.Paths.RunRoot, slug)
}

// HistoryPath returns the run ledger database path.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.RunRoot, "history.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
