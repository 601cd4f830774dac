package interceptors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/pipeline"
)

// LoggingConfig configures the logging interceptor.
type LoggingConfig struct {
	// Logger is the sink. Defaults to slog.Default().
	Logger *slog.Logger

	// Level for the enter/leave records. Errors always log at Error level.
	Level slog.Level

	// LogRequest includes model and message count of the effective request.
	LogRequest bool

	// LogResponse includes finish reason and token usage.
	LogResponse bool

	// RedactFields names request Extra/Headers keys whose values are
	// replaced with "[REDACTED]" in log output.
	RedactFields []string
}

// Logging returns a pure observer interceptor. Enter records a start
// timestamp in interceptor-owned state keyed by execution ID (never on the
// Execution itself), Leave logs the elapsed time and outcome, and the error
// callback logs the classified failure and passes the error through
// untouched. It never attempts recovery.
func Logging(cfg LoggingConfig) pipeline.Interceptor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var starts sync.Map // execution ID -> time.Time

	elapsed := func(ex *pipeline.Execution) time.Duration {
		v, ok := starts.LoadAndDelete(ex.ID)
		if !ok {
			return 0
		}
		return time.Since(v.(time.Time))
	}

	return pipeline.Interceptor{
		Name: "logging",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			starts.Store(ex.ID, time.Now())

			attrs := []any{"executionId", ex.ID, "target", ex.Target}
			if cfg.LogRequest {
				if req := ex.EffectiveRequest(); req != nil {
					attrs = append(attrs,
						"model", req.Model,
						"messages", len(req.Messages),
						"extra", redact(req.Extra, cfg.RedactFields),
					)
				}
			}
			logger.Log(ctx, cfg.Level, "call started", attrs...)
			return ex, nil
		},
		Leave: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			attrs := []any{
				"executionId", ex.ID,
				"target", ex.Target,
				"duration", elapsed(ex),
				"cached", ex.Terminated(),
			}
			if cfg.LogResponse && ex.Response != nil {
				attrs = append(attrs,
					"finishReason", ex.Response.FinishReason,
					"promptTokens", ex.Response.Usage.PromptTokens,
					"completionTokens", ex.Response.Usage.CompletionTokens,
				)
			}
			if ex.Err != nil {
				logger.Log(ctx, slog.LevelError, "call finished with unrecovered error", append(attrs, "error", ex.Err)...)
			} else {
				logger.Log(ctx, cfg.Level, "call finished", attrs...)
			}
			return ex, nil
		},
		Error: func(ctx context.Context, ex *pipeline.Execution, err error) (*pipeline.Execution, error) {
			logger.Log(ctx, slog.LevelError, "call failed",
				"executionId", ex.ID,
				"target", ex.Target,
				"duration", elapsed(ex),
				"errorKind", contracts.KindOf(err),
				"error", err,
			)
			return ex, err
		},
	}
}

func redact(extra map[string]any, fields []string) map[string]any {
	if extra == nil || len(fields) == 0 {
		return extra
	}
	out := make(map[string]any, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	for _, f := range fields {
		if _, ok := out[f]; ok {
			out[f] = "[REDACTED]"
		}
	}
	return out
}
