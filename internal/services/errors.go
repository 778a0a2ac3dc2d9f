package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrMissingDependency  = errors.New("missing dependency")
	ErrMissingRecording   = errors.New("missing recording")
	ErrGeneratorTransient = errors.New("generator transient failure")
	ErrGeneratorFatal     = errors.New("generator fatal failure")
	ErrComposition        = errors.New("composition error")
	ErrExternalTool       = errors.New("external tool error")
	ErrValidation         = errors.New("validation error")
	ErrConfiguration      = errors.New("configuration error")
)

// ErrorKind is the user-facing classification recorded in run reports.
type ErrorKind string

const (
	KindNone               ErrorKind = ""
	KindMissingDependency  ErrorKind = "MissingDependency"
	KindMissingRecording   ErrorKind = "MissingRecording"
	KindGeneratorTransient ErrorKind = "GeneratorTransient"
	KindGeneratorFatal     ErrorKind = "GeneratorFatal"
	KindComposition        ErrorKind = "CompositionError"
	KindCanceled           ErrorKind = "Canceled"
	KindInternal           ErrorKind = "Internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrGeneratorTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Classify maps an error to the taxonomy surfaced to operators. Markers are
// checked from most to least specific so a composition failure caused by a
// canceled context still reports as canceled.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrMissingRecording):
		return KindMissingRecording
	case errors.Is(err, ErrMissingDependency):
		return KindMissingDependency
	case errors.Is(err, ErrComposition):
		return KindComposition
	case errors.Is(err, ErrGeneratorFatal), errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation):
		return KindGeneratorFatal
	case errors.Is(err, ErrGeneratorTransient):
		return KindGeneratorTransient
	default:
		return KindInternal
	}
}

// Retryable reports whether a failure is worth retrying without operator
// intervention.
func Retryable(err error) bool {
	return errors.Is(err, ErrGeneratorTransient) && !errors.Is(err, context.Canceled)
}

// StatusMarker classifies an HTTP status returned by a generation service.
// Rate limits, timeouts, and server errors are transient; any other client
// error means the request itself (or its credentials) must change.
func StatusMarker(status int) error {
	switch {
	case status == http.StatusTooManyRequests,
		status == http.StatusRequestTimeout,
		status == http.StatusTooEarly,
		status >= http.StatusInternalServerError:
		return ErrGeneratorTransient
	case status >= http.StatusBadRequest:
		return ErrGeneratorFatal
	default:
		return nil
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
