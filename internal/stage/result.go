package stage

import (
	"fmt"
	"time"

	"demoforge/internal/services"
)

// Status is the outcome of a single stage attempt.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result records one stage attempt. The orchestrator fills in Stage and
// Duration; handlers report Status, Outputs, Err and Warnings.
type Result struct {
	Stage    Name
	Status   Status
	Outputs  map[Kind]string
	Duration time.Duration
	Err      error
	Warnings []string
	// Reason explains a skipped result.
	Reason string
}

// Done builds a successful result.
func Done(outputs map[Kind]string, warnings ...string) Result {
	return Result{Status: StatusDone, Outputs: outputs, Warnings: warnings}
}

// Skipped builds a result for a stage the orchestrator did not run. outputs
// lists whatever cached artifacts exist.
func Skipped(reason string, outputs map[Kind]string) Result {
	return Result{Status: StatusSkipped, Outputs: outputs, Reason: reason}
}

// Failed builds a failed result.
func Failed(err error) Result {
	if err == nil {
		err = fmt.Errorf("stage failed without error detail")
	}
	return Result{Status: StatusFailed, Err: err}
}

// ErrorKind classifies the result error for reports.
func (r Result) ErrorKind() services.ErrorKind {
	return services.Classify(r.Err)
}

// DependencyError reports a declared input that is absent from the artifact
// store when a stage is about to run.
type DependencyError struct {
	Stage Name // stage that needed the input
	Input Key  // the missing artifact
	Path  string
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("missing dependency: %s needs %s (expected at %s)", e.Stage, e.Input, e.Path)
}

// Is lets errors.Is match the shared marker.
func (e *DependencyError) Is(target error) bool {
	return target == services.ErrMissingDependency
}
