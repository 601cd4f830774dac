package interceptors

import (
	"context"
	"time"

	"github.com/glimte/llmpipe-go/pipeline"
)

// Timeout returns an interceptor that stamps a wall-clock deadline into the
// shared metadata under MetaDeadline. It does not enforce anything: the
// composition layer or the unit of work itself must read the deadline and
// act on it, for example by deriving a context with it.
func Timeout(d time.Duration) pipeline.Interceptor {
	return pipeline.Interceptor{
		Name: "timeout",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			ex.SetMeta(MetaDeadline, time.Now().Add(d))
			return ex, nil
		},
	}
}
