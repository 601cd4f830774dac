package interceptors

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/pipeline"
)

func serverError(msg string) *contracts.ProviderError {
	return &contracts.ProviderError{Kind: contracts.ErrorKindServer, Provider: "test", Message: msg}
}

func chatReq() *contracts.ChatRequest {
	return &contracts.ChatRequest{
		Model:    "test-model",
		Messages: []contracts.Message{{Role: contracts.RoleUser, Content: "hello"}},
	}
}

func okResponse() *contracts.ChatResponse {
	return &contracts.ChatResponse{
		ID:      "resp",
		Model:   "test-model",
		Message: contracts.Message{Role: contracts.RoleAssistant, Content: "ok"},
		Usage:   contracts.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}
}

func TestRetry(t *testing.T) {
	fastRetry := func(maxAttempts int) pipeline.Interceptor {
		return Retry(RetryConfig{
			MaxAttempts:  maxAttempts,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		})
	}

	t.Run("recovers a call that fails once then succeeds", func(t *testing.T) {
		logging := Logging(LoggingConfig{})
		calls := 0
		work := func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
			calls++
			if calls == 1 {
				return nil, serverError("transient")
			}
			return okResponse(), nil
		}

		chain := []pipeline.Interceptor{logging, fastRetry(3)}
		ex, err := pipeline.CallExecution(context.Background(), "test", chatReq(), nil, chain, work)

		require.NoError(t, err)
		require.NotNil(t, ex.Response)
		assert.Equal(t, "ok", ex.Response.Message.Content)
		assert.Equal(t, 2, calls)

		count, ok := ex.MetaInt(MetaRetryCount)
		assert.True(t, ok)
		assert.Equal(t, 1, count)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		boom := serverError("still down")
		calls := 0
		work := func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
			calls++
			return nil, boom
		}

		chain := []pipeline.Interceptor{fastRetry(2)}
		ex, err := pipeline.CallExecution(context.Background(), "test", chatReq(), nil, chain, work)

		assert.Equal(t, boom, err)
		assert.Equal(t, 3, calls) // initial call plus two retries

		count, _ := ex.MetaInt(MetaRetryCount)
		assert.Equal(t, 2, count)
	})

	t.Run("leaves non-retryable errors untouched", func(t *testing.T) {
		authErr := &contracts.ProviderError{Kind: contracts.ErrorKindAuthentication, Provider: "test", Message: "bad key"}
		calls := 0
		work := func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
			calls++
			return nil, authErr
		}

		chain := []pipeline.Interceptor{fastRetry(3)}
		ex, err := pipeline.CallExecution(context.Background(), "test", chatReq(), nil, chain, work)

		assert.Equal(t, authErr, err)
		assert.Equal(t, 1, calls)

		_, ok := ex.MetaInt(MetaRetryCount)
		assert.False(t, ok)
	})

	t.Run("unclassified errors are not retried by default", func(t *testing.T) {
		boom := errors.New("unclassified")
		calls := 0
		work := func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
			calls++
			return nil, boom
		}

		_, err := pipeline.CallExecution(context.Background(), "test", chatReq(), nil, []pipeline.Interceptor{fastRetry(3)}, work)

		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("custom predicate widens retry eligibility", func(t *testing.T) {
		boom := errors.New("flaky")
		calls := 0
		work := func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
			calls++
			if calls < 3 {
				return nil, boom
			}
			return okResponse(), nil
		}

		retry := Retry(RetryConfig{
			MaxAttempts:  5,
			InitialDelay: time.Millisecond,
			IsRetryable:  func(err error) bool { return errors.Is(err, boom) },
		})
		resp, err := pipeline.Call(context.Background(), "test", chatReq(), nil, []pipeline.Interceptor{retry}, work)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Message.Content)
		assert.Equal(t, 3, calls)
	})

	t.Run("waits at least the retry-after hint", func(t *testing.T) {
		hinted := &contracts.ProviderError{
			Kind:       contracts.ErrorKindRateLimited,
			RetryAfter: 50 * time.Millisecond,
			Message:    "slow down",
		}
		calls := 0
		work := func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
			calls++
			if calls == 1 {
				return nil, hinted
			}
			return okResponse(), nil
		}

		start := time.Now()
		_, err := pipeline.Call(context.Background(), "test", chatReq(), nil, []pipeline.Interceptor{fastRetry(3)}, work)

		require.NoError(t, err)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	})

	t.Run("recovering an enter-phase error invokes the unit of work once", func(t *testing.T) {
		flaky := pipeline.EnterOnly("flaky", func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			return ex, serverError("admission check failed")
		})
		calls := 0
		work := func(ctx context.Context, target string, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
			calls++
			return okResponse(), nil
		}

		chain := []pipeline.Interceptor{fastRetry(3), flaky}
		ex, err := pipeline.CallExecution(context.Background(), "test", chatReq(), nil, chain, work)

		require.NoError(t, err)
		require.NotNil(t, ex.Response)
		assert.Equal(t, "ok", ex.Response.Message.Content)
		assert.Equal(t, 1, calls, "the recovery re-invocation is the only provider call")

		count, _ := ex.MetaInt(MetaRetryCount)
		assert.Equal(t, 1, count)
	})

	t.Run("recovers without a unit of work attached", func(t *testing.T) {
		failing := pipeline.EnterOnly("failing", func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			return ex, serverError("enter boom")
		})
		chain := []pipeline.Interceptor{fastRetry(3), failing}

		req := chatReq()
		ex := pipeline.ExecuteAll(context.Background(), pipeline.NewExecution("test", req, nil, chain))

		assert.NoError(t, ex.Err)
		count, _ := ex.MetaInt(MetaRetryCount)
		assert.Equal(t, 1, count)
	})
}
