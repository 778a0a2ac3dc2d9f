package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const bodySnippetLimit = 240

// HTTPStatusError records a non-2xx response from a generation service. It
// matches ErrGeneratorTransient or ErrGeneratorFatal through errors.Is
// according to StatusMarker.
type HTTPStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	body := Snippet(e.Body)
	if body == "" {
		return fmt.Sprintf("%s: http %d", e.Service, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Service, e.StatusCode, body)
}

// Is lets callers match the status class via the shared markers.
func (e *HTTPStatusError) Is(target error) bool {
	marker := StatusMarker(e.StatusCode)
	return marker != nil && target == marker
}

// CheckResponse returns an HTTPStatusError for non-2xx responses.
func CheckResponse(service string, resp *http.Response, body []byte) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}
	return &HTTPStatusError{Service: service, StatusCode: resp.StatusCode, Body: string(body)}
}

// TransportError tags a failure to reach a generation service. Only the
// caller's own cancellation passes through unchanged. A client timeout is
// transient and keeps just its text, so it never classifies as canceled.
func TransportError(ctx context.Context, service string, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s: %w", service, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return Wrap(ErrGeneratorTransient, service, "request", "timed out: "+err.Error(), nil)
	}
	return Wrap(ErrGeneratorTransient, service, "request", "", err)
}

// Snippet flattens whitespace and truncates a response body for messages.
func Snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	runes := []rune(clean)
	if len(runes) > bodySnippetLimit {
		return string(runes[:bodySnippetLimit]) + "..."
	}
	return clean
}
