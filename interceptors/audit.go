package interceptors

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/glimte/llmpipe-go/audit"
	"github.com/glimte/llmpipe-go/pipeline"
)

// AuditConfig configures the audit interceptor.
type AuditConfig struct {
	// Sink receives one event per phase transition. Required.
	Sink audit.Sink

	// Logger reports sink failures. Publish problems never feed back into
	// the pipeline. Defaults to slog.Default().
	Logger *slog.Logger
}

// Audit returns a pure observer interceptor that emits an audit event on
// enter, leave, and error. The error callback passes the error through
// untouched.
func Audit(cfg AuditConfig) pipeline.Interceptor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var starts sync.Map // execution ID -> time.Time

	publish := func(ctx context.Context, event audit.Event) {
		if cfg.Sink == nil {
			return
		}
		if err := cfg.Sink.Publish(ctx, event); err != nil {
			logger.Warn("audit publish failed", "phase", event.Phase, "error", err)
		}
	}

	model := func(ex *pipeline.Execution) string {
		if req := ex.EffectiveRequest(); req != nil {
			return req.Model
		}
		return ""
	}

	return pipeline.Interceptor{
		Name: "audit",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			starts.Store(ex.ID, time.Now())
			event := audit.NewEvent(ex.ID, audit.PhaseEnter, ex.Target)
			event.Model = model(ex)
			publish(ctx, event)
			return ex, nil
		},
		Leave: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			event := audit.NewEvent(ex.ID, audit.PhaseLeave, ex.Target)
			event.Model = model(ex)
			if v, ok := starts.LoadAndDelete(ex.ID); ok {
				event.Elapsed = time.Since(v.(time.Time))
			}
			if ex.Err != nil {
				event.Error = ex.Err.Error()
			}
			publish(ctx, event)
			return ex, nil
		},
		Error: func(ctx context.Context, ex *pipeline.Execution, err error) (*pipeline.Execution, error) {
			event := audit.NewEvent(ex.ID, audit.PhaseError, ex.Target)
			event.Model = model(ex)
			event.Error = err.Error()
			if v, ok := starts.LoadAndDelete(ex.ID); ok {
				event.Elapsed = time.Since(v.(time.Time))
			}
			publish(ctx, event)
			return ex, err
		},
	}
}
