package artifact

import (
	"time"

	"demoforge/internal/fileutil"
	"demoforge/internal/stage"
)

// Ref points at one artifact on disk.
type Ref struct {
	Stage   stage.Name
	Kind    stage.Kind
	Path    string
	Size    int64
	ModTime time.Time
}

// Key returns the artifact address.
func (r Ref) Key() stage.Key { return stage.Key{Stage: r.Stage, Kind: r.Kind} }

// Exists re-checks the file: it must be a regular file with content.
func (r Ref) Exists() bool {
	if r.Path == "" {
		return false
	}
	_, ok := fileutil.NonEmpty(r.Path)
	return ok
}
