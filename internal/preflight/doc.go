// Package preflight checks that a run can succeed before any stage spends
// time or API quota: media binaries and the ffmpeg build, run root and log
// directory permissions, generator credentials, and per-stage readiness.
//
// The doctor command prints every result. The run command logs failed
// checks as warnings and lets the affected stage report the real error.
package preflight
