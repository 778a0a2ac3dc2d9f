package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"demoforge/internal/fileutil"
	"demoforge/internal/stage"
)

// ErrLocked is returned when another process holds the run root.
var ErrLocked = errors.New("run root is locked by another demoforge process")

const lockFileName = ".demoforge.lock"

// Store maps (stage, kind) pairs to files under a run root.
type Store struct {
	root string
	lock *flock.Flock
}

// Open prepares a store rooted at root, creating the directory if needed.
func Open(root string) (*Store, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, errors.New("artifact store: run root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("artifact store: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: create root: %w", err)
	}
	return &Store{
		root: abs,
		lock: flock.New(filepath.Join(abs, lockFileName)),
	}, nil
}

// Root returns the absolute run root.
func (s *Store) Root() string { return s.root }

// Lock claims the run root for this process. Stages write artifacts
// sequentially, so a second orchestrator on the same root is refused rather
// than interleaved.
func (s *Store) Lock() error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("artifact store: acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.root)
	}
	return nil
}

// Unlock releases the run root.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// Path returns where the artifact lives, whether or not it exists.
func (s *Store) Path(name stage.Name, kind stage.Kind) string {
	return PathFor(s.root, name, kind)
}

// Get returns the artifact when it exists with content.
func (s *Store) Get(name stage.Name, kind stage.Kind) (Ref, bool) {
	path := s.Path(name, kind)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Size() == 0 {
		return Ref{}, false
	}
	return Ref{Stage: name, Kind: kind, Path: path, Size: info.Size(), ModTime: info.ModTime()}, true
}

// Exists reports whether the artifact is present and non-empty.
func (s *Store) Exists(name stage.Name, kind stage.Kind) bool {
	_, ok := s.Get(name, kind)
	return ok
}

// Put writes data as the artifact, replacing any previous version atomically.
func (s *Store) Put(name stage.Name, kind stage.Kind, data []byte) (Ref, error) {
	if len(data) == 0 {
		return Ref{}, fmt.Errorf("artifact store: refusing empty %s/%s", name, kind)
	}
	path := s.Path(name, kind)
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		return Ref{}, fmt.Errorf("artifact store: put %s/%s: %w", name, kind, err)
	}
	return s.mustGet(name, kind)
}

// Import copies an external file into the store as the artifact.
func (s *Store) Import(name stage.Name, kind stage.Kind, src string) (Ref, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return Ref{}, errors.New("artifact store: import source is required")
	}
	if _, ok := fileutil.NonEmpty(src); !ok {
		return Ref{}, fmt.Errorf("artifact store: import %s/%s: source %q is missing or empty", name, kind, src)
	}
	path := s.Path(name, kind)
	if fileutil.SameFile(src, path) {
		return s.mustGet(name, kind)
	}
	if err := fileutil.CopyAtomic(src, path); err != nil {
		return Ref{}, fmt.Errorf("artifact store: import %s/%s: %w", name, kind, err)
	}
	return s.mustGet(name, kind)
}

// Reserve returns a fresh temp path beside the artifact for writers that
// produce files themselves (ffmpeg). The extension is preserved so tools can
// infer the container. Nothing under the reserved path is visible through Get
// until Commit.
func (s *Store) Reserve(name stage.Name, kind stage.Kind) (string, error) {
	path := s.Path(name, kind)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact store: reserve %s/%s: %w", name, kind, err)
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	f, err := os.CreateTemp(dir, fileutil.TempPrefix()+stem+"-*"+ext)
	if err != nil {
		return "", fmt.Errorf("artifact store: reserve %s/%s: %w", name, kind, err)
	}
	tmp := f.Name()
	_ = f.Close()
	return tmp, nil
}

// Commit moves a reserved temp file into place as the artifact.
func (s *Store) Commit(tmpPath string, name stage.Name, kind stage.Kind) (Ref, error) {
	if _, ok := fileutil.NonEmpty(tmpPath); !ok {
		_ = os.Remove(tmpPath)
		return Ref{}, fmt.Errorf("artifact store: commit %s/%s: staged file is empty", name, kind)
	}
	if err := fileutil.Publish(tmpPath, s.Path(name, kind)); err != nil {
		return Ref{}, fmt.Errorf("artifact store: commit %s/%s: %w", name, kind, err)
	}
	return s.mustGet(name, kind)
}

// Discard removes a reserved temp file that will not be committed.
func (s *Store) Discard(tmpPath string) {
	if strings.TrimSpace(tmpPath) == "" {
		return
	}
	_ = os.Remove(tmpPath)
}

// Remove deletes the artifact if present.
func (s *Store) Remove(name stage.Name, kind stage.Kind) error {
	err := os.Remove(s.Path(name, kind))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("artifact store: remove %s/%s: %w", name, kind, err)
	}
	return nil
}

// Fresh reports whether ref exists and is at least as new as every existing
// dependency. Missing dependencies do not make ref stale; the dependency check
// handles them separately.
func (s *Store) Fresh(ref Ref, deps ...Ref) bool {
	if !ref.Exists() {
		return false
	}
	for _, dep := range deps {
		if !dep.Exists() {
			continue
		}
		if dep.ModTime.After(ref.ModTime) {
			return false
		}
	}
	return true
}

// SweepTemp removes temp files left behind by an interrupted writer.
func (s *Store) SweepTemp() (int, error) {
	removed := 0
	for _, name := range stage.Order {
		dir := filepath.Join(s.root, string(name))
		entries, err := os.ReadDir(dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("artifact store: sweep %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasPrefix(entry.Name(), fileutil.TempPrefix()) {
				continue
			}
			if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *Store) mustGet(name stage.Name, kind stage.Kind) (Ref, error) {
	ref, ok := s.Get(name, kind)
	if !ok {
		return Ref{}, fmt.Errorf("artifact store: %s/%s missing after write", name, kind)
	}
	return ref, nil
}
