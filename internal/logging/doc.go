// Package logging assembles the slog loggers used by the demoforge CLI and
// pipeline stages.
//
// It owns the console and JSON handlers, the stderr plus log-file fan-out, and
// per-stage level overrides. WithContext tags log lines with the run ID, the
// product slug, and the active stage carried on the context, so stage code
// never threads those fields by hand. NewNop gives tests and optional wiring a
// logger that cannot fail.
package logging
