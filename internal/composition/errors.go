package composition

import (
	"fmt"

	"demoforge/internal/services"
)

// Step names the phase of a render that failed.
type Step string

const (
	StepProbe   Step = "probe"
	StepConform Step = "conform"
	StepMix     Step = "mix"
	StepOverlay Step = "overlay"
	StepEncode  Step = "encode"
)

// Error reports a failed render. It matches services.ErrComposition.
type Error struct {
	Step   Step
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("composition %s failed", e.Step)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the shared marker.
func (e *Error) Is(target error) bool { return target == services.ErrComposition }

func failure(step Step, detail string, err error) error {
	return &Error{Step: step, Detail: detail, Err: err}
}
