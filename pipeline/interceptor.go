package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoCallbacks is returned when an interceptor is constructed without any
// Enter, Leave, or Error callback.
var ErrNoCallbacks = errors.New("pipeline: interceptor requires at least one callback")

// StageFunc is the callback shape for the enter and leave phases. It receives
// the current Execution and returns its replacement. Returning a non-nil
// error records it as the active pipeline error; returning a nil Execution
// together with a nil error is a fatal contract violation.
type StageFunc func(ctx context.Context, ex *Execution) (*Execution, error)

// ErrorFunc is the callback shape for the error phase. The returned error
// becomes the active pipeline error: returning nil clears it (full recovery),
// returning err unchanged leaves it active, returning a different error
// replaces it.
type ErrorFunc func(ctx context.Context, ex *Execution, err error) (*Execution, error)

// Interceptor is an immutable named bundle of up to three phase callbacks.
type Interceptor struct {
	Name  string
	Enter StageFunc
	Leave StageFunc
	Error ErrorFunc
}

// Option configures an Interceptor under construction.
type Option func(*Interceptor)

// WithEnter sets the enter-phase callback.
func WithEnter(fn StageFunc) Option {
	return func(i *Interceptor) { i.Enter = fn }
}

// WithLeave sets the leave-phase callback.
func WithLeave(fn StageFunc) Option {
	return func(i *Interceptor) { i.Leave = fn }
}

// WithError sets the error-phase callback.
func WithError(fn ErrorFunc) Option {
	return func(i *Interceptor) { i.Error = fn }
}

// New builds an interceptor from a name and callback options. At least one
// callback must be supplied.
func New(name string, opts ...Option) (Interceptor, error) {
	i := Interceptor{Name: name}
	for _, opt := range opts {
		opt(&i)
	}
	if i.Enter == nil && i.Leave == nil && i.Error == nil {
		return Interceptor{}, fmt.Errorf("%w: %q", ErrNoCallbacks, name)
	}
	return i, nil
}

// EnterOnly wraps a bare function as an enter-only interceptor.
func EnterOnly(name string, fn StageFunc) Interceptor {
	return Interceptor{Name: name, Enter: fn}
}

// ContractViolationError reports a callback that returned a nil Execution
// without an error. The engine panics with this value instead of routing it
// through the error phase: a broken callback cannot be recovered from.
type ContractViolationError struct {
	Interceptor string
	Phase       string
}

// Error implements the error interface.
func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("pipeline: interceptor %q returned a nil execution from its %s callback", e.Interceptor, e.Phase)
}
