package pipeline

import (
	"context"
)

// runEnterPhase advances the queue while no error is active and the chain has
// not been terminated. Each interceptor moves from the queue head onto the
// stack before its Enter callback runs, so an erroring interceptor is itself
// on the stack for the error phase. Queue entries never entered are left
// untouched as a trace of partial execution.
func runEnterPhase(ctx context.Context, ex *Execution) *Execution {
	for len(ex.queue) > 0 && !ex.terminated && ex.Err == nil {
		icp := ex.queue[0]

		next := ex.clone()
		next.queue = ex.queue[1:]
		next.stack = append(ex.stack[:len(ex.stack):len(ex.stack)], icp)
		ex = next

		if icp.Enter == nil {
			continue
		}
		out, err := icp.Enter(ctx, ex)
		if err != nil {
			if out == nil {
				out = ex
			}
			ex = out.WithError(err)
			continue
		}
		if out == nil {
			panic(&ContractViolationError{Interceptor: icp.Name, Phase: "enter"})
		}
		ex = out
	}
	return ex
}

// runLeavePhase unwinds the stack in LIFO order. Its only stop condition is
// an empty stack: an error raised by a Leave callback is recorded on the
// Execution and the remaining entries still get their Leave calls, possibly
// observing the error. Nothing re-enters the error phase from here, so a
// leave-phase error always reaches the caller unhandled.
func runLeavePhase(ctx context.Context, ex *Execution) *Execution {
	for len(ex.stack) > 0 {
		n := len(ex.stack)
		icp := ex.stack[n-1]

		next := ex.clone()
		next.stack = ex.stack[:n-1]
		ex = next

		if icp.Leave == nil {
			continue
		}
		out, err := icp.Leave(ctx, ex)
		if err != nil {
			if out == nil {
				out = ex
			}
			ex = out.WithError(err)
			continue
		}
		if out == nil {
			panic(&ContractViolationError{Interceptor: icp.Name, Phase: "leave"})
		}
		ex = out
	}
	return ex
}

// runErrorPhase unwinds the stack while an error is active. Entries without
// an Error callback are consumed and skipped. A handler that returns a nil
// error recovers the pipeline: popping stops and the interceptors still below
// on the stack are left for normal Leave processing. A handler that returns a
// new error replaces the active one and popping continues.
func runErrorPhase(ctx context.Context, ex *Execution) *Execution {
	for len(ex.stack) > 0 && ex.Err != nil {
		n := len(ex.stack)
		icp := ex.stack[n-1]

		next := ex.clone()
		next.stack = ex.stack[:n-1]
		ex = next

		if icp.Error == nil {
			continue
		}
		out, err := icp.Error(ctx, ex, ex.Err)
		if out == nil {
			if err == nil {
				panic(&ContractViolationError{Interceptor: icp.Name, Phase: "error"})
			}
			out = ex
		}
		ex = out.WithError(err)
	}
	return ex
}

// Execute runs the enter phase and, if it left an error behind, immediately
// gives the already-entered interceptors a chance to handle it.
func Execute(ctx context.Context, ex *Execution) *Execution {
	ex = runEnterPhase(ctx, ex)
	if ex.Err != nil {
		ex = runErrorPhase(ctx, ex)
	}
	return ex
}

// ExecuteLeave unwinds the stack after the unit of work has run. An active
// error (typically a failed unit of work) goes through the error phase first,
// over the still-intact stack; whatever stack remains after recovery gets
// normal leave calls. A final error-phase pass covers errors introduced
// during the leave phase itself, but the stack is always empty by then, so
// such errors propagate to the caller without ever reaching a handler. That
// asymmetry is part of the contract, not an oversight.
func ExecuteLeave(ctx context.Context, ex *Execution) *Execution {
	if ex.Err != nil {
		ex = runErrorPhase(ctx, ex)
	}
	ex = runLeavePhase(ctx, ex)
	if ex.Err != nil {
		ex = runErrorPhase(ctx, ex)
	}
	return ex
}

// ExecuteAll composes Execute and ExecuteLeave back to back, for chains with
// no real unit of work between the phases.
func ExecuteAll(ctx context.Context, ex *Execution) *Execution {
	return ExecuteLeave(ctx, Execute(ctx, ex))
}
