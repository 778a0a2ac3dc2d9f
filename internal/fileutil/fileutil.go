// Package fileutil holds the atomic file primitives the artifact store and
// report writer build on.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// tempPrefix marks in-flight files. Readers that list directories must ignore
// names with this prefix.
const tempPrefix = ".tmp-"

// TempPrefix exposes the in-flight file prefix.
func TempPrefix() string { return tempPrefix }

// NonEmpty reports the size of path and whether it is a regular, non-empty
// file. Zero-byte files left by a crashed writer count as absent.
func NonEmpty(path string) (int64, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return 0, false
	}
	return info.Size(), info.Size() > 0
}

// CreateTemp opens a new temp file next to dst so a later rename stays on the
// same filesystem.
func CreateTemp(dst string) (*os.File, error) {
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %q: %w", dir, err)
	}
	return os.CreateTemp(dir, tempPrefix+filepath.Base(dst)+"-*")
}

// Publish renames a finished temp file onto dst. The temp file is removed
// when the rename fails.
func Publish(tmpPath, dst string) error {
	if err := os.Rename(tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s -> %s: %w", tmpPath, dst, err)
	}
	return nil
}

// WriteAtomic writes data beside path, syncs it and renames it into place, so
// path holds either the old content or the new one.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	return writeStaged(path, mode, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// CopyAtomic copies src onto dst through a temp file and checks that the
// staged bytes hash the same as the source before publishing. The result gets
// a fresh modification time.
func CopyAtomic(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("copy source %s: %w", src, fs.ErrInvalid)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	srcSum := sha256.New()
	return writeStaged(dst, 0o644, func(w io.Writer) error {
		dstSum := sha256.New()
		n, err := io.Copy(io.MultiWriter(w, dstSum), io.TeeReader(in, srcSum))
		if err != nil {
			return err
		}
		if n != info.Size() {
			return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), n)
		}
		if !bytes.Equal(srcSum.Sum(nil), dstSum.Sum(nil)) {
			return fmt.Errorf("copy hash mismatch for %s", src)
		}
		return nil
	})
}

// writeStaged runs fill against a synced temp file beside dst and publishes it with
// mode. Any failure removes the temp file.
func writeStaged(dst string, mode os.FileMode, fill func(io.Writer) error) error {
	tmp, err := CreateTemp(dst)
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	fail := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if err := fill(tmp); err != nil {
		return fail(fmt.Errorf("write %s: %w", tmpPath, err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("sync %s: %w", tmpPath, err))
	}
	if err := tmp.Chmod(mode); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return Publish(tmpPath, dst)
}

// SameFile reports whether a and b refer to the same file on disk.
func SameFile(a, b string) bool {
	ai, err := os.Stat(a)
	if err != nil {
		return false
	}
	bi, err := os.Stat(b)
	return err == nil && os.SameFile(ai, bi)
}
