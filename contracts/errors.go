package contracts

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a provider failure for retry and logging decisions.
type ErrorKind string

const (
	ErrorKindRateLimited    ErrorKind = "rate_limited"
	ErrorKindAuthentication ErrorKind = "authentication"
	ErrorKindServer         ErrorKind = "server"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindNetwork        ErrorKind = "network"
	ErrorKindInvalidRequest ErrorKind = "invalid_request"
	ErrorKindUnknown        ErrorKind = "unknown"
)

// ProviderError is a classified failure raised by a unit of work. It carries
// at minimum a kind, optionally a retry-after hint and a provider tag.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	RetryAfter time.Duration
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap returns the underlying cause, if any.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Retryable reports whether this kind of failure is worth retrying.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ErrorKindRateLimited, ErrorKindServer, ErrorKindTimeout, ErrorKindNetwork:
		return true
	default:
		return false
	}
}

// IsRetryable is the default retryability predicate: classified transient
// failures are retryable, everything else (including unclassified errors)
// is not.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable()
	}
	return false
}

// RetryAfterHint extracts the provider's retry-after hint from a classified
// error, or zero when none is present.
func RetryAfterHint(err error) time.Duration {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.RetryAfter
	}
	return 0
}

// KindOf returns the classification of an error. Unclassified errors report
// ErrorKindUnknown.
func KindOf(err error) ErrorKind {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ErrorKindUnknown
}
