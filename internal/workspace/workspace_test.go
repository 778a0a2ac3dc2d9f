package workspace_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"demoforge/internal/artifact"
	"demoforge/internal/logging"
	"demoforge/internal/workspace"
)

func makeRoot(t *testing.T, runRoot, slug string, age time.Duration) string {
	t.Helper()
	dir := filepath.Join(runRoot, slug, "script")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	file := filepath.Join(dir, "script.md")
	if err := os.WriteFile(file, []byte("# Script\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	when := time.Now().Add(-age)
	if err := os.Chtimes(file, when, when); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	return filepath.Join(runRoot, slug)
}

func TestListOrdersByActivity(t *testing.T) {
	runRoot := t.TempDir()
	makeRoot(t, runRoot, "old", 48*time.Hour)
	makeRoot(t, runRoot, "new", time.Minute)
	if err := os.WriteFile(filepath.Join(runRoot, "history.db"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write history: %v", err)
	}

	roots, err := workspace.List(runRoot)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(roots) != 2 || roots[0].Slug != "new" || roots[1].Slug != "old" {
		t.Fatalf("roots = %+v", roots)
	}
	if roots[0].Size != int64(len("# Script\n")) {
		t.Fatalf("size = %d", roots[0].Size)
	}
}

func TestListMissingRunRoot(t *testing.T) {
	for _, dir := range []string{"", "   ", filepath.Join(t.TempDir(), "absent")} {
		roots, err := workspace.List(dir)
		if err != nil || len(roots) != 0 {
			t.Fatalf("List(%q) = %v, %v", dir, roots, err)
		}
	}
}

func TestCleanStaleRemovesIdleRoots(t *testing.T) {
	runRoot := t.TempDir()
	old := makeRoot(t, runRoot, "old", 48*time.Hour)
	fresh := makeRoot(t, runRoot, "fresh", time.Minute)

	preview := workspace.CleanStale(runRoot, 24*time.Hour, true, logging.NewNop())
	if len(preview.Removed) != 1 || preview.Removed[0] != old {
		t.Fatalf("dry run = %+v", preview)
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatalf("dry run removed %s", old)
	}

	result := workspace.CleanStale(runRoot, 24*time.Hour, false, logging.NewNop())
	if len(result.Removed) != 1 || len(result.Errors) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatal("stale root should be gone")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh root should remain")
	}
}

func TestCleanStaleSkipsLockedRoot(t *testing.T) {
	runRoot := t.TempDir()
	old := makeRoot(t, runRoot, "busy", 48*time.Hour)

	holder, err := artifact.Open(old)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := holder.Lock(); err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer holder.Unlock()

	result := workspace.CleanStale(runRoot, 24*time.Hour, false, logging.NewNop())
	if len(result.Skipped) != 1 || len(result.Removed) != 0 {
		t.Fatalf("result = %+v", result)
	}
	if _, err := os.Stat(old); err != nil {
		t.Fatal("locked root must not be removed")
	}
}
