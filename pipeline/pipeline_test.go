package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimte/llmpipe-go/contracts"
)

// tracer builds interceptors that record the order their callbacks run in.
type tracer struct {
	calls []string
}

func (t *tracer) interceptor(name string) Interceptor {
	return Interceptor{
		Name: name,
		Enter: func(ctx context.Context, ex *Execution) (*Execution, error) {
			t.calls = append(t.calls, name+".enter")
			return ex, nil
		},
		Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
			t.calls = append(t.calls, name+".leave")
			return ex, nil
		},
	}
}

func newTestExecution(chain []Interceptor) *Execution {
	req := &contracts.ChatRequest{
		Model:    "test-model",
		Messages: []contracts.Message{{Role: contracts.RoleUser, Content: "hello"}},
	}
	return NewExecution("test", req, nil, chain)
}

func TestEnterAndLeaveOrder(t *testing.T) {
	t.Run("enter runs in chain order and leave in reverse", func(t *testing.T) {
		tr := &tracer{}
		chain := []Interceptor{tr.interceptor("a"), tr.interceptor("b"), tr.interceptor("c")}

		ex := ExecuteAll(context.Background(), newTestExecution(chain))

		assert.Equal(t, []string{
			"a.enter", "b.enter", "c.enter",
			"c.leave", "b.leave", "a.leave",
		}, tr.calls)
		assert.NoError(t, ex.Err)
		assert.Empty(t, ex.Queue())
		assert.Empty(t, ex.Stack())
	})

	t.Run("interceptors without callbacks are passed through", func(t *testing.T) {
		tr := &tracer{}
		chain := []Interceptor{
			tr.interceptor("a"),
			{Name: "error-only", Error: func(ctx context.Context, ex *Execution, err error) (*Execution, error) {
				return ex, err
			}},
			tr.interceptor("b"),
		}

		ex := ExecuteAll(context.Background(), newTestExecution(chain))

		assert.Equal(t, []string{"a.enter", "b.enter", "b.leave", "a.leave"}, tr.calls)
		assert.NoError(t, ex.Err)
	})

	t.Run("queue plus reversed stack preserves chain order mid-flight", func(t *testing.T) {
		var snapshot *Execution
		probe := Interceptor{
			Name: "probe",
			Enter: func(ctx context.Context, ex *Execution) (*Execution, error) {
				snapshot = ex
				return ex, nil
			},
		}
		tr := &tracer{}
		chain := []Interceptor{tr.interceptor("a"), probe, tr.interceptor("b")}

		ExecuteAll(context.Background(), newTestExecution(chain))

		require.NotNil(t, snapshot)
		stack := snapshot.Stack()
		queue := snapshot.Queue()
		require.Len(t, stack, 2)
		require.Len(t, queue, 1)
		assert.Equal(t, "a", stack[0].Name)
		assert.Equal(t, "probe", stack[1].Name)
		assert.Equal(t, "b", queue[0].Name)
	})
}

func TestTermination(t *testing.T) {
	t.Run("terminate stops queue advancement but unwinds entered interceptors", func(t *testing.T) {
		tr := &tracer{}
		terminator := Interceptor{
			Name: "terminator",
			Enter: func(ctx context.Context, ex *Execution) (*Execution, error) {
				tr.calls = append(tr.calls, "terminator.enter")
				return ex.Terminate(), nil
			},
			Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
				tr.calls = append(tr.calls, "terminator.leave")
				return ex, nil
			},
		}
		chain := []Interceptor{tr.interceptor("a"), terminator, tr.interceptor("b"), tr.interceptor("c")}

		ex := ExecuteAll(context.Background(), newTestExecution(chain))

		assert.Equal(t, []string{
			"a.enter", "terminator.enter",
			"terminator.leave", "a.leave",
		}, tr.calls)
		assert.True(t, ex.Terminated())
	})

	t.Run("never-entered interceptors stay in the queue", func(t *testing.T) {
		tr := &tracer{}
		terminator := EnterOnly("terminator", func(ctx context.Context, ex *Execution) (*Execution, error) {
			return ex.Terminate(), nil
		})
		chain := []Interceptor{tr.interceptor("a"), terminator, tr.interceptor("b"), tr.interceptor("c")}

		ex := Execute(context.Background(), newTestExecution(chain))

		queue := ex.Queue()
		require.Len(t, queue, 2)
		assert.Equal(t, "b", queue[0].Name)
		assert.Equal(t, "c", queue[1].Name)
	})
}

func TestEnterPhaseErrors(t *testing.T) {
	boom := errors.New("boom")

	t.Run("error stops the queue and preserves unentered interceptors", func(t *testing.T) {
		tr := &tracer{}
		failing := EnterOnly("failing", func(ctx context.Context, ex *Execution) (*Execution, error) {
			return ex, boom
		})
		chain := []Interceptor{tr.interceptor("a"), failing, tr.interceptor("b")}

		ex := runEnterPhase(context.Background(), newTestExecution(chain))

		assert.Equal(t, boom, ex.Err)
		assert.Equal(t, []string{"a.enter"}, tr.calls)
		queue := ex.Queue()
		require.Len(t, queue, 1)
		assert.Equal(t, "b", queue[0].Name)
		stack := ex.Stack()
		require.Len(t, stack, 2)
		assert.Equal(t, "failing", stack[1].Name)
	})

	t.Run("execute routes an enter error through the error phase in reverse order", func(t *testing.T) {
		var handled []string
		handler := func(name string) Interceptor {
			return Interceptor{
				Name: name,
				Error: func(ctx context.Context, ex *Execution, err error) (*Execution, error) {
					handled = append(handled, name)
					return ex, err
				},
			}
		}
		failing := EnterOnly("failing", func(ctx context.Context, ex *Execution) (*Execution, error) {
			return ex, boom
		})
		chain := []Interceptor{handler("a"), handler("b"), failing}

		ex := Execute(context.Background(), newTestExecution(chain))

		assert.Equal(t, []string{"b", "a"}, handled)
		assert.Equal(t, boom, ex.Err)
	})
}

func TestErrorPhase(t *testing.T) {
	boom := errors.New("boom")

	t.Run("clearing the error stops the search and restores normal leave below", func(t *testing.T) {
		var calls []string
		leaveOnly := func(name string) Interceptor {
			return Interceptor{
				Name: name,
				Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
					calls = append(calls, name+".leave")
					return ex, nil
				},
			}
		}
		recoverer := Interceptor{
			Name: "recoverer",
			Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
				calls = append(calls, "recoverer.leave")
				return ex, nil
			},
			Error: func(ctx context.Context, ex *Execution, err error) (*Execution, error) {
				calls = append(calls, "recoverer.error")
				return ex, nil
			},
		}
		skipped := leaveOnly("skipped") // consumed handler-less during the search
		failing := EnterOnly("failing", func(ctx context.Context, ex *Execution) (*Execution, error) {
			return ex, boom
		})
		chain := []Interceptor{leaveOnly("below"), recoverer, skipped, failing}

		ex := ExecuteAll(context.Background(), newTestExecution(chain))

		assert.NoError(t, ex.Err)
		// skipped was consumed during the handler search and the recoverer
		// itself was popped by the error phase: neither gets a leave call,
		// only the interceptors below the recoverer do.
		assert.Equal(t, []string{"recoverer.error", "below.leave"}, calls)
	})

	t.Run("a handler that raises replaces the active error and popping continues", func(t *testing.T) {
		replaced := errors.New("replaced")
		var observed []error
		replacer := Interceptor{
			Name: "replacer",
			Error: func(ctx context.Context, ex *Execution, err error) (*Execution, error) {
				observed = append(observed, err)
				return ex, replaced
			},
		}
		witness := Interceptor{
			Name: "witness",
			Error: func(ctx context.Context, ex *Execution, err error) (*Execution, error) {
				observed = append(observed, err)
				return ex, err
			},
		}
		failing := EnterOnly("failing", func(ctx context.Context, ex *Execution) (*Execution, error) {
			return ex, boom
		})
		chain := []Interceptor{witness, replacer, failing}

		ex := ExecuteAll(context.Background(), newTestExecution(chain))

		assert.Equal(t, replaced, ex.Err)
		assert.Equal(t, []error{boom, replaced}, observed)
	})
}

func TestLeavePhaseErrors(t *testing.T) {
	leaveBoom := errors.New("leave boom")

	t.Run("a leave error does not stop the phase and is never handled", func(t *testing.T) {
		var calls []string
		var errorHandlerRan bool
		below := Interceptor{
			Name: "below",
			Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
				calls = append(calls, "below.leave")
				// The error raised above is already visible here.
				assert.Equal(t, leaveBoom, ex.Err)
				return ex, nil
			},
			Error: func(ctx context.Context, ex *Execution, err error) (*Execution, error) {
				errorHandlerRan = true
				return ex, nil
			},
		}
		failingLeave := Interceptor{
			Name: "failing-leave",
			Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
				calls = append(calls, "failing-leave.leave")
				return ex, leaveBoom
			},
		}
		chain := []Interceptor{below, failingLeave}

		ex := ExecuteAll(context.Background(), newTestExecution(chain))

		assert.Equal(t, []string{"failing-leave.leave", "below.leave"}, calls)
		assert.Equal(t, leaveBoom, ex.Err)
		assert.False(t, errorHandlerRan, "leave-phase errors must never reach error handlers")
	})

	t.Run("a later leave error replaces an earlier one", func(t *testing.T) {
		first := errors.New("first")
		second := errors.New("second")
		chain := []Interceptor{
			{Name: "a", Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
				return ex, second
			}},
			{Name: "b", Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
				return ex, first
			}},
		}

		ex := ExecuteAll(context.Background(), newTestExecution(chain))

		assert.Equal(t, second, ex.Err)
	})
}

func TestContractViolations(t *testing.T) {
	assertViolation := func(t *testing.T, phase string, fn func()) {
		t.Helper()
		defer func() {
			r := recover()
			require.NotNil(t, r, "expected a panic")
			violation, ok := r.(*ContractViolationError)
			require.True(t, ok, "panic value must be *ContractViolationError, got %T", r)
			assert.Equal(t, phase, violation.Phase)
			assert.NotEmpty(t, violation.Error())
		}()
		fn()
	}

	t.Run("nil execution from enter panics", func(t *testing.T) {
		chain := []Interceptor{EnterOnly("broken", func(ctx context.Context, ex *Execution) (*Execution, error) {
			return nil, nil
		})}
		assertViolation(t, "enter", func() {
			Execute(context.Background(), newTestExecution(chain))
		})
	})

	t.Run("nil execution from leave panics", func(t *testing.T) {
		chain := []Interceptor{{Name: "broken", Leave: func(ctx context.Context, ex *Execution) (*Execution, error) {
			return nil, nil
		}}}
		assertViolation(t, "leave", func() {
			ExecuteAll(context.Background(), newTestExecution(chain))
		})
	})

	t.Run("nil execution from error handler panics", func(t *testing.T) {
		chain := []Interceptor{
			{Name: "broken", Error: func(ctx context.Context, ex *Execution, err error) (*Execution, error) {
				return nil, nil
			}},
			EnterOnly("failing", func(ctx context.Context, ex *Execution) (*Execution, error) {
				return ex, errors.New("boom")
			}),
		}
		assertViolation(t, "error", func() {
			Execute(context.Background(), newTestExecution(chain))
		})
	})
}
