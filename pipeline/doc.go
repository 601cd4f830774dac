// Package pipeline implements a three-phase interceptor execution engine
// around a synchronous unit of work.
//
// An Interceptor bundles up to three optional callbacks: Enter runs forward
// through the chain, Leave runs backward (LIFO), and Error runs backward
// while an error is active. Per-call state travels in an Execution, which is
// replaced at every step rather than mutated in place.
//
// Phase mechanics:
//   - Enter drains the queue into the stack, stopping on termination or on
//     the first callback error. Interceptors never entered stay in the queue.
//   - Leave drains the whole stack unconditionally. An error raised during
//     leave is recorded but keeps the phase going; by the time the phase
//     finishes, the stack it would need for error handling is empty, so
//     leave-phase errors always surface to the caller unhandled.
//   - Error pops the stack while an error is active, offering each Error
//     callback a chance to recover. Clearing the error stops the phase and
//     leaves the rest of the stack for normal Leave processing.
//
// Call wires a chain and a caller-supplied unit of work together:
//
//	resp, err := pipeline.Call(ctx, "anthropic", req, opts, chain, work)
//
// Cross-cutting behavior (retries, caching, rate limiting, logging) is
// provided by the interceptors package, built purely on this contract.
package pipeline
