package interceptors

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/glimte/llmpipe-go/pipeline"
)

// RateLimitConfig configures the rate limit interceptor.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained refill rate. Defaults to 60.
	RequestsPerMinute int

	// BurstSize is the bucket capacity. Defaults to 1.
	BurstSize int
}

// rateLimitPoll is how long a blocked caller sleeps between bucket checks.
const rateLimitPoll = 5 * time.Millisecond

// RateLimit returns an interceptor that throttles calls through a shared
// token bucket with continuous refill. Enter blocks the calling goroutine,
// polling in small increments until a token is available, then debits one.
// This is a blocking throttle, not a queue: there is no fairness guarantee
// across concurrent callers beyond whoever observes a token first. The
// bucket is owned by the interceptor instance and shared across all calls.
func RateLimit(cfg RateLimitConfig) pipeline.Interceptor {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 60
	}
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(float64(rpm)/60.0), burst)

	return pipeline.Interceptor{
		Name: "rate-limit",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			for !limiter.Allow() {
				select {
				case <-time.After(rateLimitPoll):
				case <-ctx.Done():
					return ex, ctx.Err()
				}
			}
			return ex, nil
		},
	}
}
