package testsupport

import (
	"path/filepath"
	"testing"

	"demoforge/internal/artifact"
	"demoforge/internal/stage"
)

// MustOpenStore opens an artifact store under a fresh temp run root.
func MustOpenStore(t testing.TB) *artifact.Store {
	t.Helper()

	store, err := artifact.Open(filepath.Join(t.TempDir(), "run"))
	if err != nil {
		t.Fatalf("artifact.Open: %v", err)
	}
	return store
}

// PutArtifact stores content for the given slot and returns its path.
func PutArtifact(t testing.TB, store *artifact.Store, name stage.Name, kind stage.Kind, content string) string {
	t.Helper()

	ref, err := store.Put(name, kind, []byte(content))
	if err != nil {
		t.Fatalf("store.Put %s/%s: %v", name, kind, err)
	}
	return ref.Path
}
