package stage

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"demoforge/internal/logging"
	"demoforge/internal/services"
)

const (
	defaultRetryAttempts     = 4
	defaultRetryInitialDelay = time.Second
	defaultRetryMaxDelay     = 10 * time.Second
)

// RetryPolicy bounds how often a stage re-invokes its external generator.
// Only failures marked services.ErrGeneratorTransient are retried.
type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	// Notify is called before each backoff sleep.
	Notify func(attempt int, err error, delay time.Duration)
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  defaultRetryAttempts,
		InitialDelay: defaultRetryInitialDelay,
		MaxDelay:     defaultRetryMaxDelay,
	}
}

// Do runs op until it succeeds, fails permanently, the attempt budget is
// spent, or ctx is done. It returns the number of attempts made.
func (p RetryPolicy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	p = p.normalized()

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = p.InitialDelay
	expo.MaxInterval = p.MaxDelay
	expo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(expo, uint64(p.MaxAttempts-1)), ctx)

	attempts := 0
	err := backoff.RetryNotify(func() error {
		attempts++
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !services.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy, func(err error, delay time.Duration) {
		if p.Notify != nil {
			p.Notify(attempts, err, delay)
		}
	})
	return attempts, err
}

// Logged returns a copy of p that logs a warning before every retry of the
// named generator, chaining any existing Notify.
func (p RetryPolicy) Logged(logger *slog.Logger, generator string) RetryPolicy {
	if logger == nil {
		return p
	}
	next := p.Notify
	p.Notify = func(attempt int, err error, delay time.Duration) {
		logging.WarnWithContext(logger, "generator call failed; retrying", "generator_retry",
			logging.String("generator", generator),
			logging.Int("attempt", attempt),
			logging.Duration("retry_in", delay),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "transient failures retry automatically; check service status if this repeats"),
			logging.String(logging.FieldImpact, "stage completion is delayed"),
		)
		if next != nil {
			next(attempt, err, delay)
		}
	}
	return p
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = def.MaxAttempts
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = def.InitialDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = def.MaxDelay
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}
