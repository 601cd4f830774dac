// Package interceptors provides the built-in interceptor library for the
// pipeline engine: retry with backoff, TTL response caching, token-bucket
// rate limiting, context-window trimming, logging, cost accounting, metrics,
// and audit event emission.
//
// Every interceptor here is built purely on the pipeline contract; none of
// them reaches into provider clients. State that must survive across calls
// (the cache store, the rate-limit bucket, timing maps) is owned by the
// interceptor instance and guarded for concurrent use, never stored on the
// per-call Execution.
//
// Example chain:
//
//	chain, err := pipeline.Chain(
//		interceptors.Logging(interceptors.LoggingConfig{Logger: logger}),
//		interceptors.RateLimit(interceptors.RateLimitConfig{RequestsPerMinute: 120}),
//		interceptors.Cache(interceptors.CacheConfig{TTL: 5 * time.Minute}),
//		interceptors.Retry(interceptors.RetryConfig{MaxAttempts: 3}),
//	)
package interceptors
