package pipeline

import (
	"context"

	"github.com/glimte/llmpipe-go/contracts"
)

// UnitOfWork is the externally-supplied function the chain wraps, typically a
// network call to a chat backend. Failures should be classified as
// *contracts.ProviderError where possible so retry and logging interceptors
// can act on them.
type UnitOfWork func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error)

// Call runs the interceptor chain around one unit-of-work invocation and
// returns the final response. Errors that survive the error phase are
// returned to the caller verbatim, never wrapped.
func Call(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions, chain []Interceptor, work UnitOfWork) (*contracts.ChatResponse, error) {
	ex, err := CallExecution(ctx, target, req, opts, chain, work)
	if err != nil {
		return nil, err
	}
	return ex.Response, nil
}

// CallExecution is Call with the final Execution exposed, for callers that
// need the transformed request/options or interceptor metadata.
//
// The sequence is fixed: enter phase (with error-phase fallback), then the
// unit of work against the effective request/options unless an interceptor
// terminated the chain or already produced a response, then leave/error
// unwinding. A terminated chain skips the unit of work entirely; the
// terminating interceptor is responsible for having set a response. A
// response present after the enter phase means the work already ran — a
// retry handler recovering an enter-phase error re-invokes it — and must
// not run again.
func CallExecution(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions, chain []Interceptor, work UnitOfWork) (*Execution, error) {
	ex := NewExecution(target, req, opts, chain)
	ex.work = work

	ex = Execute(ctx, ex)
	if ex.Err != nil {
		return ex, ex.Err
	}

	if !ex.terminated && ex.Response == nil {
		if next, ok := ex.Invoke(ctx); ok {
			ex = next
		}
	}

	ex = ExecuteLeave(ctx, ex)
	if ex.Err != nil {
		return ex, ex.Err
	}
	return ex, nil
}
