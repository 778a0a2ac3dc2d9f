package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPStatusErrorMarkers(t *testing.T) {
	cases := []struct {
		status    int
		transient bool
		fatal     bool
	}{
		{http.StatusTooManyRequests, true, false},
		{http.StatusBadGateway, true, false},
		{http.StatusRequestTimeout, true, false},
		{http.StatusUnauthorized, false, true},
		{http.StatusUnprocessableEntity, false, true},
	}
	for _, tc := range cases {
		err := error(&HTTPStatusError{Service: "tts", StatusCode: tc.status})
		if got := errors.Is(err, ErrGeneratorTransient); got != tc.transient {
			t.Fatalf("status %d transient = %v, want %v", tc.status, got, tc.transient)
		}
		if got := errors.Is(err, ErrGeneratorFatal); got != tc.fatal {
			t.Fatalf("status %d fatal = %v, want %v", tc.status, got, tc.fatal)
		}
	}
}

func TestCheckResponse(t *testing.T) {
	if err := CheckResponse("llm", &http.Response{StatusCode: http.StatusOK}, nil); err != nil {
		t.Fatalf("unexpected error for 200: %v", err)
	}
	err := CheckResponse("llm", &http.Response{StatusCode: http.StatusServiceUnavailable}, []byte("  busy\n try later "))
	if err == nil || !Retryable(err) {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if !strings.Contains(err.Error(), "http 503: busy try later") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestTransportError(t *testing.T) {
	err := TransportError(context.Background(), "transcribe", errors.New("connection refused"))
	if !Retryable(err) {
		t.Fatalf("network failure should be retryable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := TransportError(ctx, "transcribe", context.Canceled)
	if Retryable(canceled) || Classify(canceled) != KindCanceled {
		t.Fatalf("cancellation must not be retried: %v", canceled)
	}
}

func TestTransportErrorClientTimeoutIsTransient(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()
	defer close(release)

	ctx := context.Background()
	client := &http.Client{Timeout: 50 * time.Millisecond}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, doErr := client.Do(req)
	if doErr == nil {
		t.Fatal("expected the client timeout to fire")
	}

	err = TransportError(ctx, "tts", doErr)
	if got := Classify(err); got != KindGeneratorTransient {
		t.Fatalf("Classify = %s, want %s (err=%v)", got, KindGeneratorTransient, err)
	}
	if !Retryable(err) {
		t.Fatalf("client timeout should be retried: %v", err)
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := strings.Repeat("x", bodySnippetLimit+10)
	if got := Snippet(long); !strings.HasSuffix(got, "...") || len(got) != bodySnippetLimit+3 {
		t.Fatalf("unexpected snippet length %d", len(got))
	}
}
