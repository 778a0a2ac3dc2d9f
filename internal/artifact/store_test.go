package artifact

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"demoforge/internal/stage"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "run"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestPathIsDeterministic(t *testing.T) {
	root := t.TempDir()
	a, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for _, key := range Catalog() {
		if a.Path(key.Stage, key.Kind) != b.Path(key.Stage, key.Kind) {
			t.Fatalf("paths differ for %s", key)
		}
		if !strings.HasPrefix(a.Path(key.Stage, key.Kind), filepath.Join(a.Root(), string(key.Stage))) {
			t.Fatalf("path for %s not under stage dir: %s", key, a.Path(key.Stage, key.Kind))
		}
	}
}

func TestPutGetExists(t *testing.T) {
	store := openStore(t)
	if store.Exists(stage.Script, stage.KindScriptText) {
		t.Fatal("expected script to be absent")
	}
	ref, err := store.Put(stage.Script, stage.KindScriptText, []byte("hello"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ref.Size != 5 || !ref.Exists() {
		t.Fatalf("unexpected ref %+v", ref)
	}
	got, ok := store.Get(stage.Script, stage.KindScriptText)
	if !ok || got.Path != ref.Path {
		t.Fatalf("Get = %+v, %v", got, ok)
	}
	if _, err := store.Put(stage.Script, stage.KindScriptText, nil); err == nil {
		t.Fatal("expected empty put to fail")
	}
}

func TestZeroByteArtifactIsAbsent(t *testing.T) {
	store := openStore(t)
	path := store.Path(stage.Voiceover, stage.KindAudio)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if store.Exists(stage.Voiceover, stage.KindAudio) {
		t.Fatal("zero-byte artifact must be treated as absent")
	}
}

func TestImportCopiesAndIsIdempotent(t *testing.T) {
	store := openStore(t)
	src := filepath.Join(t.TempDir(), "capture.webm")
	if err := os.WriteFile(src, []byte("video-bytes"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ref, err := store.Import(stage.Recording, stage.KindVideoRaw, src)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil || string(data) != "video-bytes" {
		t.Fatalf("imported content = %q, %v", data, err)
	}
	again, err := store.Import(stage.Recording, stage.KindVideoRaw, ref.Path)
	if err != nil {
		t.Fatalf("re-import of stored path: %v", err)
	}
	if again.Path != ref.Path {
		t.Fatalf("re-import moved artifact: %s", again.Path)
	}

	empty := filepath.Join(t.TempDir(), "empty.webm")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := store.Import(stage.Recording, stage.KindVideoRaw, empty); err == nil {
		t.Fatal("expected import of empty file to fail")
	}
}

func TestReserveCommitAndDiscard(t *testing.T) {
	store := openStore(t)
	tmp, err := store.Reserve(stage.Composite, stage.KindVideoFinal)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if filepath.Ext(tmp) != ".mp4" {
		t.Fatalf("reserved path lost extension: %s", tmp)
	}
	if store.Exists(stage.Composite, stage.KindVideoFinal) {
		t.Fatal("reserved file must not be visible")
	}
	if _, err := store.Commit(tmp, stage.Composite, stage.KindVideoFinal); err == nil {
		t.Fatal("expected commit of empty staged file to fail")
	}
	if _, err := os.Stat(tmp); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("empty staged file should be removed, stat err=%v", err)
	}

	tmp, err = store.Reserve(stage.Composite, stage.KindVideoFinal)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if err := os.WriteFile(tmp, []byte("mp4"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ref, err := store.Commit(tmp, stage.Composite, stage.KindVideoFinal)
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !ref.Exists() {
		t.Fatal("committed artifact missing")
	}

	tmp, err = store.Reserve(stage.Composite, stage.KindVideoFinal)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	store.Discard(tmp)
	if _, err := os.Stat(tmp); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("discarded file still present")
	}
}

func TestFresh(t *testing.T) {
	store := openStore(t)
	input, err := store.Put(stage.Voiceover, stage.KindAudio, []byte("audio"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	output, err := store.Put(stage.Captions, stage.KindCaptionSRT, []byte("1\n"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(output.Path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
	output, _ = store.Get(stage.Captions, stage.KindCaptionSRT)
	if store.Fresh(output, input) {
		t.Fatal("output older than input should be stale")
	}
	if !store.Fresh(output) {
		t.Fatal("output without deps should be fresh")
	}
	if !store.Fresh(output, Ref{Path: filepath.Join(store.Root(), "missing")}) {
		t.Fatal("missing dependency must not make output stale")
	}
}

func TestLockIsExclusive(t *testing.T) {
	root := t.TempDir()
	a, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := Open(root)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := a.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := b.Lock(); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := a.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := b.Lock(); err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	_ = b.Unlock()
}

func TestSweepTemp(t *testing.T) {
	store := openStore(t)
	tmp, err := store.Reserve(stage.Composite, stage.KindVideoFinal)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if _, err := store.Put(stage.Script, stage.KindScriptText, []byte("keep")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	removed, err := store.SweepTemp()
	if err != nil {
		t.Fatalf("SweepTemp: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(tmp); !errors.Is(err, os.ErrNotExist) {
		t.Fatal("temp file survived sweep")
	}
	if !store.Exists(stage.Script, stage.KindScriptText) {
		t.Fatal("sweep removed a real artifact")
	}
}

func TestList(t *testing.T) {
	store := openStore(t)
	if _, err := store.Put(stage.Script, stage.KindScriptText, []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	entries := store.List()
	if len(entries) != len(Catalog()) {
		t.Fatalf("entries = %d", len(entries))
	}
	if !entries[0].Present || entries[1].Present {
		t.Fatalf("unexpected presence: %+v", entries[:2])
	}
}
