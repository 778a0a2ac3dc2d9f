// Package artifact is the filesystem-backed registry of stage outputs.
//
// Every artifact lives at a path derived only from the run root, the producing
// stage, and the artifact kind, so separate invocations against the same run
// root agree on locations without coordination. Writes go through a temp file
// and a rename; readers treat missing and zero-byte files alike as absent. The
// directory layout is the only persisted pipeline state: resume decisions are
// rebuilt from which artifacts exist.
package artifact
