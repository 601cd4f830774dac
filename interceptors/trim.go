package interceptors

import (
	"context"

	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/pipeline"
)

// TrimConfig configures the context-window trimming interceptors.
type TrimConfig struct {
	// Limit is the window size: a message count for WindowTrim, a token
	// budget for TokenTrim.
	Limit int

	// TokenCountFn estimates tokens per message for TokenTrim. Defaults to
	// EstimateTokens.
	TokenCountFn func(msg contracts.Message) int

	// PreserveSystemMessages keeps system messages out of the trimming pool
	// and re-prepends them to the trimmed transcript.
	PreserveSystemMessages bool
}

// EstimateTokens is a rough chars/4 token estimate, good enough for budget
// trimming when no real tokenizer is supplied.
func EstimateTokens(msg contracts.Message) int {
	return len(msg.Content)/4 + 1
}

// WindowTrim returns an interceptor that keeps only the last Limit
// non-system messages, writing the result to the transformed request. The
// original request is never touched. Requests already inside the window pass
// through unchanged.
func WindowTrim(cfg TrimConfig) pipeline.Interceptor {
	return pipeline.Interceptor{
		Name: "window-trim",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			req := ex.EffectiveRequest()
			if req == nil || cfg.Limit <= 0 {
				return ex, nil
			}
			system, rest := splitSystem(req.Messages, cfg.PreserveSystemMessages)
			if len(rest) <= cfg.Limit {
				return ex, nil
			}
			kept := rest[len(rest)-cfg.Limit:]
			return ex.WithRequest(rebuild(req, system, kept)), nil
		},
	}
}

// TokenTrim returns an interceptor that drops the oldest non-system messages
// until the transcript fits a token budget. Preserved system messages count
// against the budget first.
func TokenTrim(cfg TrimConfig) pipeline.Interceptor {
	countFn := cfg.TokenCountFn
	if countFn == nil {
		countFn = EstimateTokens
	}
	return pipeline.Interceptor{
		Name: "token-trim",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			req := ex.EffectiveRequest()
			if req == nil || cfg.Limit <= 0 {
				return ex, nil
			}
			system, rest := splitSystem(req.Messages, cfg.PreserveSystemMessages)

			budget := cfg.Limit
			for _, msg := range system {
				budget -= countFn(msg)
			}

			// Walk newest-first, admitting messages while they fit.
			keepFrom := len(rest)
			for i := len(rest) - 1; i >= 0; i-- {
				cost := countFn(rest[i])
				if cost > budget {
					break
				}
				budget -= cost
				keepFrom = i
			}
			if keepFrom == 0 {
				return ex, nil
			}
			return ex.WithRequest(rebuild(req, system, rest[keepFrom:])), nil
		},
	}
}

func splitSystem(msgs []contracts.Message, preserve bool) (system, rest []contracts.Message) {
	if !preserve {
		return nil, msgs
	}
	for _, msg := range msgs {
		if msg.IsSystem() {
			system = append(system, msg)
		} else {
			rest = append(rest, msg)
		}
	}
	return system, rest
}

func rebuild(req *contracts.ChatRequest, system, kept []contracts.Message) *contracts.ChatRequest {
	out := req.Clone()
	out.Messages = make([]contracts.Message, 0, len(system)+len(kept))
	out.Messages = append(out.Messages, system...)
	out.Messages = append(out.Messages, kept...)
	return out
}
