package stage

import (
	"context"
	"log/slog"
)

// Handler describes the contract the orchestrator needs from each stage.
//
// Run is only called once every non-optional input has been located in the
// artifact store. It must never panic or return a raw generator error: every
// failure is reported through Result.Err so the orchestrator can classify it.
type Handler interface {
	Name() Name
	Inputs() []Selector
	Outputs() []Kind
	Run(context.Context, Inputs) Result
}

// LoggerAware is implemented by handlers that accept a stage-scoped logger.
type LoggerAware interface {
	SetLogger(*slog.Logger)
}

// HealthChecker is implemented by handlers that can report readiness of their
// external collaborators without invoking them.
type HealthChecker interface {
	HealthCheck(context.Context) Health
}

// Inputs carries the resolved artifact paths for a stage invocation.
type Inputs struct {
	paths map[Key]string
}

// NewInputs wraps resolved input paths.
func NewInputs(paths map[Key]string) Inputs {
	cp := make(map[Key]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	return Inputs{paths: cp}
}

// Path returns the resolved path for the given artifact.
func (in Inputs) Path(stage Name, kind Kind) (string, bool) {
	p, ok := in.paths[Key{Stage: stage, Kind: kind}]
	return p, ok && p != ""
}

// Len returns the number of resolved inputs.
func (in Inputs) Len() int { return len(in.paths) }
