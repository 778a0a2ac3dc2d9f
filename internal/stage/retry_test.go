package stage

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"demoforge/internal/services"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryPolicyRetriesTransient(t *testing.T) {
	calls := 0
	attempts, err := fastPolicy(4).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("rate limited: %w", services.ErrGeneratorTransient)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 || attempts != 3 {
		t.Fatalf("expected 3 calls, got calls=%d attempts=%d", calls, attempts)
	}
}

func TestRetryPolicyStopsOnFatal(t *testing.T) {
	calls := 0
	_, err := fastPolicy(5).Do(context.Background(), func(context.Context) error {
		calls++
		return fmt.Errorf("bad key: %w", services.ErrGeneratorFatal)
	})
	if !errors.Is(err, services.ErrGeneratorFatal) {
		t.Fatalf("expected fatal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("fatal errors must not be retried, got %d calls", calls)
	}
}

func TestRetryPolicyBoundsAttempts(t *testing.T) {
	calls := 0
	var notified []int
	policy := fastPolicy(3)
	policy.Notify = func(attempt int, _ error, _ time.Duration) { notified = append(notified, attempt) }
	attempts, err := policy.Do(context.Background(), func(context.Context) error {
		calls++
		return services.ErrGeneratorTransient
	})
	if !errors.Is(err, services.ErrGeneratorTransient) {
		t.Fatalf("expected transient error after exhaustion, got %v", err)
	}
	if calls != 3 || attempts != 3 {
		t.Fatalf("expected 3 attempts, got calls=%d attempts=%d", calls, attempts)
	}
	if len(notified) != 2 {
		t.Fatalf("expected 2 backoff notifications, got %v", notified)
	}
}

func TestRetryPolicyHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fastPolicy(5).Do(ctx, func(ctx context.Context) error {
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestDependencyErrorMatchesMarker(t *testing.T) {
	err := error(&DependencyError{Stage: Composite, Input: Key{Stage: Voiceover, Kind: KindAudio}, Path: "/x"})
	if !errors.Is(err, services.ErrMissingDependency) {
		t.Fatal("expected dependency error to match marker")
	}
	if services.Classify(err) != services.KindMissingDependency {
		t.Fatalf("unexpected classification %q", services.Classify(err))
	}
	var dep *DependencyError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &dep) || dep.Input.Kind != KindAudio {
		t.Fatal("expected errors.As to recover the dependency error")
	}
}
