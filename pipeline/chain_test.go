package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain(t *testing.T) {
	named := func(name string) Interceptor {
		return EnterOnly(name, func(ctx context.Context, ex *Execution) (*Execution, error) {
			return ex, nil
		})
	}

	t.Run("flattens nested collections and drops nils", func(t *testing.T) {
		a, b, c, d := named("a"), named("b"), named("c"), named("d")

		chain, err := Chain(
			a,
			nil,
			[]Interceptor{b, c},
			[]any{nil, &d, []any{named("e")}},
		)

		require.NoError(t, err)
		require.Len(t, chain, 5)
		names := make([]string, len(chain))
		for i, icp := range chain {
			names[i] = icp.Name
		}
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, names)
	})

	t.Run("bare functions become enter-only interceptors", func(t *testing.T) {
		ran := false
		chain, err := Chain(func(ctx context.Context, ex *Execution) (*Execution, error) {
			ran = true
			return ex, nil
		})
		require.NoError(t, err)
		require.Len(t, chain, 1)
		require.NotNil(t, chain[0].Enter)
		assert.Nil(t, chain[0].Leave)

		ExecuteAll(context.Background(), newTestExecution(chain))
		assert.True(t, ran)
	})

	t.Run("nil interceptor pointers are dropped", func(t *testing.T) {
		var nilPtr *Interceptor
		chain, err := Chain(nilPtr)
		require.NoError(t, err)
		assert.Empty(t, chain)
	})

	t.Run("rejects callback-less interceptors", func(t *testing.T) {
		_, err := Chain([]Interceptor{named("a"), {Name: "empty"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNoCallbacks)
		assert.Contains(t, err.Error(), "empty")

		_, err = Chain(Interceptor{})
		assert.ErrorIs(t, err, ErrNoCallbacks)
	})

	t.Run("rejects unsupported values", func(t *testing.T) {
		_, err := Chain("not an interceptor")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported chain element")
	})
}
