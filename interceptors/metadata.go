package interceptors

// Metadata keys written by the built-in interceptors. They live in the
// shared Execution metadata map and are readable by any interceptor in the
// same chain.
const (
	// MetaRetryCount counts completed retry attempts for one call.
	MetaRetryCount = "retry.count"

	// MetaCacheKey is the cache key computed for the effective request.
	MetaCacheKey = "cache.key"

	// MetaCacheHit marks an Execution served from cache.
	MetaCacheHit = "cache.hit"

	// MetaDeadline is the wall-clock deadline stamped by Timeout. The engine
	// does not enforce it; callers that care must check it around the unit
	// of work.
	MetaDeadline = "deadline"
)
