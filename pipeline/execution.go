package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/glimte/llmpipe-go/contracts"
)

// Execution is the per-call state threaded through the enter, leave, and
// error phases. It is replaced at every step; the helper methods return a
// copy with one field changed. The Metadata map is the single exception: it
// is shared scratch space for the lifetime of one call and may be mutated by
// interceptors directly (for example a retry counter).
type Execution struct {
	// ID uniquely identifies one call attempt, for diagnostics and for
	// interceptor-owned per-call state (timing maps and the like).
	ID string

	// Target, Request, and Options are the original unit-of-work inputs.
	// They are never mutated; interceptors that rewrite the request or
	// options set the Transformed fields instead.
	Target  string
	Request *contracts.ChatRequest
	Options *contracts.CallOptions

	// TransformedRequest and TransformedOptions, when non-nil, override the
	// originals for the unit-of-work invocation.
	TransformedRequest *contracts.ChatRequest
	TransformedOptions *contracts.CallOptions

	// Response holds the unit-of-work result once it has been set, either by
	// the composition helper or by an interceptor (cache hit, retry).
	Response *contracts.ChatResponse

	// Err is the currently active error, nil when none.
	Err error

	// Metadata is open key/value scratch space shared across interceptors.
	Metadata map[string]any

	queue      []Interceptor
	stack      []Interceptor
	terminated bool
	work       UnitOfWork
}

// NewExecution builds the initial Execution for one call, with the whole
// chain queued and nothing entered yet.
func NewExecution(target string, req *contracts.ChatRequest, opts *contracts.CallOptions, chain []Interceptor) *Execution {
	return &Execution{
		ID:       uuid.NewString(),
		Target:   target,
		Request:  req,
		Options:  opts,
		Metadata: make(map[string]any),
		queue:    chain,
	}
}

func (ex *Execution) clone() *Execution {
	cp := *ex
	return &cp
}

// WithRequest returns a copy with the transformed request set.
func (ex *Execution) WithRequest(req *contracts.ChatRequest) *Execution {
	next := ex.clone()
	next.TransformedRequest = req
	return next
}

// WithOptions returns a copy with the transformed options set.
func (ex *Execution) WithOptions(opts *contracts.CallOptions) *Execution {
	next := ex.clone()
	next.TransformedOptions = opts
	return next
}

// WithResponse returns a copy with the response set.
func (ex *Execution) WithResponse(resp *contracts.ChatResponse) *Execution {
	next := ex.clone()
	next.Response = resp
	return next
}

// WithError returns a copy with the active error replaced. Passing nil
// clears it.
func (ex *Execution) WithError(err error) *Execution {
	next := ex.clone()
	next.Err = err
	return next
}

// Terminate returns a copy flagged to stop advancing the queue. Interceptors
// still on the stack get their normal leave calls; the unit of work is
// skipped, so whoever terminates must have set a response already.
func (ex *Execution) Terminate() *Execution {
	next := ex.clone()
	next.terminated = true
	return next
}

// Terminated reports whether the chain has been terminated.
func (ex *Execution) Terminated() bool {
	return ex.terminated
}

// EffectiveRequest returns the transformed request when set, otherwise the
// original.
func (ex *Execution) EffectiveRequest() *contracts.ChatRequest {
	if ex.TransformedRequest != nil {
		return ex.TransformedRequest
	}
	return ex.Request
}

// EffectiveOptions returns the transformed options when set, otherwise the
// originals.
func (ex *Execution) EffectiveOptions() *contracts.CallOptions {
	if ex.TransformedOptions != nil {
		return ex.TransformedOptions
	}
	return ex.Options
}

// Queue returns a snapshot of the interceptors not yet entered.
func (ex *Execution) Queue() []Interceptor {
	out := make([]Interceptor, len(ex.queue))
	copy(out, ex.queue)
	return out
}

// Stack returns a snapshot of the entered interceptors, bottom first.
func (ex *Execution) Stack() []Interceptor {
	out := make([]Interceptor, len(ex.stack))
	copy(out, ex.stack)
	return out
}

// Invoke runs the wrapped unit of work against the effective request and
// options, returning a copy with the response or error recorded. It reports
// false when no unit of work is attached (engine-only use). The retry
// interceptor uses this to re-issue the call after recovering an error.
func (ex *Execution) Invoke(ctx context.Context) (*Execution, bool) {
	if ex.work == nil {
		return ex, false
	}
	resp, err := ex.work(ctx, ex.Target, ex.EffectiveRequest(), ex.EffectiveOptions())
	if err != nil {
		return ex.WithError(err), true
	}
	next := ex.WithResponse(resp)
	next.Err = nil
	return next, true
}

// SetMeta stores a value in the shared metadata map.
func (ex *Execution) SetMeta(key string, value any) {
	ex.Metadata[key] = value
}

// Meta retrieves a value from the shared metadata map.
func (ex *Execution) Meta(key string) (any, bool) {
	v, ok := ex.Metadata[key]
	return v, ok
}

// MetaInt retrieves an int value from the shared metadata map.
func (ex *Execution) MetaInt(key string) (int, bool) {
	v, ok := ex.Metadata[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// MetaString retrieves a string value from the shared metadata map.
func (ex *Execution) MetaString(key string) (string, bool) {
	v, ok := ex.Metadata[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
