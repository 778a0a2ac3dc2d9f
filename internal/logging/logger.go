package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"demoforge/internal/config"
)

// LogFileName is the file written under the configured log directory.
const LogFileName = "demoforge.log"

// Options describes logger construction parameters.
type Options struct {
	Level  string
	Format string
	// OutputPaths are "stdout", "stderr" or file paths. Empty means stderr.
	OutputPaths []string
	// FilePath, when set, also receives every record as a JSON line.
	FilePath    string
	Development bool
}

// New builds a logger from opts. Source locations are added in development
// mode and whenever debug output is enabled.
func New(opts Options) (*slog.Logger, error) {
	level := ParseLevel(opts.Level)
	addSource := opts.Development || level <= slog.LevelDebug

	out, err := openOutput(opts.OutputPaths)
	if err != nil {
		return nil, err
	}

	var primary slog.Handler
	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		primary = newConsoleHandler(out, level, addSource)
	case "json":
		primary = newJSONHandler(out, level, addSource)
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}

	path := strings.TrimSpace(opts.FilePath)
	if path == "" {
		return slog.New(primary), nil
	}
	file, err := openOutput([]string{path})
	if err != nil {
		return nil, err
	}
	return slog.New(tee(primary, newJSONHandler(file, level, addSource))), nil
}

// NewFromConfig logs to stderr in the configured format and, when a log
// directory is set, to demoforge.log inside it.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	opts := Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format}
	if dir := strings.TrimSpace(cfg.Paths.LogDir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure log directory: %w", err)
		}
		opts.FilePath = filepath.Join(dir, LogFileName)
	}
	return New(opts)
}

// ParseLevel maps a configured level name onto slog. Unknown names mean info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func openOutput(paths []string) (io.Writer, error) {
	var writers []io.Writer
	var seen []string
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" || slices.Contains(seen, p) {
			continue
		}
		seen = append(seen, p)
		w, err := openTarget(p)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	switch len(writers) {
	case 0:
		return os.Stderr, nil
	case 1:
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}

func openTarget(path string) (io.Writer, error) {
	switch path {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory for %s: %w", path, err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return file, nil
}
