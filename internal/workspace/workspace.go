package workspace

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
)

// RootInfo describes one product run root.
type RootInfo struct {
	Slug string
	Path string
	// LastActivity is the newest modification time of any artifact inside.
	LastActivity time.Time
	Size         int64
}

// CleanResult lists removed roots and per-root failures.
type CleanResult struct {
	Removed []string
	Skipped []string
	Errors  []CleanupError
}

// CleanupError pairs a run root with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// List returns every run root under runRoot, most recently active first.
func List(runRoot string) ([]RootInfo, error) {
	runRoot = strings.TrimSpace(runRoot)
	if runRoot == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(runRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var roots []RootInfo
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		info, err := inspect(filepath.Join(runRoot, entry.Name()))
		if err != nil {
			continue
		}
		info.Slug = entry.Name()
		roots = append(roots, info)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return roots[i].LastActivity.After(roots[j].LastActivity)
	})
	return roots, nil
}

// CleanStale removes run roots whose last activity is older than maxAge. A
// root locked by a running pipeline is skipped. With dryRun set nothing is
// removed and Removed lists what would be.
func CleanStale(runRoot string, maxAge time.Duration, dryRun bool, logger *slog.Logger) CleanResult {
	if logger == nil {
		logger = logging.NewNop()
	}
	var result CleanResult
	roots, err := List(runRoot)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: runRoot, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, root := range roots {
		if !root.LastActivity.Before(cutoff) {
			continue
		}
		if dryRun {
			result.Removed = append(result.Removed, root.Path)
			continue
		}
		removed, err := removeUnlocked(root.Path)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, CleanupError{Path: root.Path, Error: err})
			logging.WarnWithContext(logger, "failed to remove stale run root", "run_root_cleanup_failed",
				logging.String("path", root.Path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check run_root permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
		case !removed:
			result.Skipped = append(result.Skipped, root.Path)
		default:
			result.Removed = append(result.Removed, root.Path)
			logger.Info("removed stale run root",
				logging.String(logging.FieldEventType, "run_root_cleanup"),
				logging.String("path", root.Path),
				logging.Duration("idle", time.Since(root.LastActivity)),
				logging.Int64("size_bytes", root.Size),
			)
		}
	}
	return result
}

// removeUnlocked deletes root while holding its store lock. It reports false
// when another process holds the lock.
func removeUnlocked(root string) (bool, error) {
	store, err := artifact.Open(root)
	if err != nil {
		return false, err
	}
	if err := store.Lock(); err != nil {
		if errors.Is(err, artifact.ErrLocked) {
			return false, nil
		}
		return false, err
	}
	defer func() { _ = store.Unlock() }()
	if err := os.RemoveAll(root); err != nil {
		return false, err
	}
	return true, nil
}

// inspect sums file sizes under root and finds the newest modification,
// ignoring dot files such as the store lock.
func inspect(root string) (RootInfo, error) {
	info := RootInfo{Path: root}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		info.Size += fi.Size()
		if fi.ModTime().After(info.LastActivity) {
			info.LastActivity = fi.ModTime()
		}
		return nil
	})
	if info.LastActivity.IsZero() {
		if fi, statErr := os.Stat(root); statErr == nil {
			info.LastActivity = fi.ModTime()
		}
	}
	return info, err
}
