package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/internal/backoff"
	"github.com/glimte/llmpipe-go/pipeline"
)

// RetryConfig configures the retry interceptor.
type RetryConfig struct {
	// MaxAttempts is the number of retries allowed after the initial call.
	// Defaults to 3.
	MaxAttempts int

	// InitialDelay is the backoff before the first retry. Defaults to 100ms.
	InitialDelay time.Duration

	// MaxDelay caps the grown backoff. Defaults to 30s.
	MaxDelay time.Duration

	// Multiplier grows the backoff per attempt. Defaults to 2.0.
	Multiplier float64

	// JitterFraction adds up to this fraction of the delay as random jitter.
	JitterFraction float64

	// IsRetryable decides whether an error is worth retrying. Defaults to
	// contracts.IsRetryable, which accepts classified transient failures
	// only.
	IsRetryable func(error) bool

	// Logger logs retry attempts. Defaults to slog.Default().
	Logger *slog.Logger
}

// Retry returns an interceptor that re-issues the unit of work when it fails
// with a retryable error. It sleeps for the larger of the provider's
// retry-after hint and the current backoff delay, plus jitter, tracks the
// attempt count under MetaRetryCount, and clears the error once an attempt
// succeeds so interceptors below it get their normal leave calls. A
// non-retryable error, or one that outlives the attempt budget, is left
// untouched.
func Retry(cfg RetryConfig) pipeline.Interceptor {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.IsRetryable == nil {
		cfg.IsRetryable = contracts.IsRetryable
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := backoff.NewExponential(cfg.InitialDelay, cfg.MaxDelay, cfg.Multiplier, cfg.JitterFraction)

	return pipeline.Interceptor{
		Name: "retry",
		Error: func(ctx context.Context, ex *pipeline.Execution, err error) (*pipeline.Execution, error) {
			attempts, _ := ex.MetaInt(MetaRetryCount)
			current := err

			for attempts < cfg.MaxAttempts && cfg.IsRetryable(current) {
				delay := policy.Delay(attempts)
				if hint := contracts.RetryAfterHint(current); hint > delay {
					delay = hint
				}
				delay = policy.Jitter(delay)

				logger.Warn("retrying failed call",
					"target", ex.Target,
					"attempt", attempts+1,
					"maxAttempts", cfg.MaxAttempts,
					"delay", delay,
					"errorKind", contracts.KindOf(current),
					"error", current,
				)

				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return ex, ctx.Err()
				}

				attempts++
				ex.SetMeta(MetaRetryCount, attempts)

				next, ok := ex.Invoke(ctx)
				if !ok {
					// No unit of work attached (bare engine run): the retry
					// bookkeeping still happened, recover and move on.
					return ex, nil
				}
				ex = next
				if ex.Err == nil {
					return ex, nil
				}
				current = ex.Err
			}

			return ex, current
		},
	}
}
