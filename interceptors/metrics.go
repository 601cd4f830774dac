package interceptors

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/pipeline"
)

// MetricsConfig configures the Prometheus metrics interceptor.
type MetricsConfig struct {
	// Registerer receives the collectors. Defaults to
	// prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer

	// Namespace prefixes every metric name. Defaults to "llmpipe".
	Namespace string
}

// Metrics returns a pure observer interceptor exporting per-call Prometheus
// metrics: request and error counters, a duration histogram, and token usage
// counters. Registration failures (for example a duplicate registration on
// the same registerer) are returned to the caller.
func Metrics(cfg MetricsConfig) (pipeline.Interceptor, error) {
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "llmpipe"
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "requests_total",
		Help:      "Chat calls started, by target.",
	}, []string{"target"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "errors_total",
		Help:      "Chat call errors observed by the error phase, by target and kind.",
	}, []string{"target", "kind"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      "call_duration_seconds",
		Help:      "Wall time from enter to leave, by target.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"target"})
	tokens := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      "tokens_total",
		Help:      "Token usage reported by responses, by target and type.",
	}, []string{"target", "type"})

	for _, c := range []prometheus.Collector{requests, errs, duration, tokens} {
		if err := reg.Register(c); err != nil {
			return pipeline.Interceptor{}, err
		}
	}

	var starts sync.Map // execution ID -> time.Time

	return pipeline.Interceptor{
		Name: "metrics",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			starts.Store(ex.ID, time.Now())
			requests.WithLabelValues(ex.Target).Inc()
			return ex, nil
		},
		Leave: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			if v, ok := starts.LoadAndDelete(ex.ID); ok {
				duration.WithLabelValues(ex.Target).Observe(time.Since(v.(time.Time)).Seconds())
			}
			if resp := ex.Response; resp != nil {
				tokens.WithLabelValues(ex.Target, "prompt").Add(float64(resp.Usage.PromptTokens))
				tokens.WithLabelValues(ex.Target, "completion").Add(float64(resp.Usage.CompletionTokens))
			}
			return ex, nil
		},
		Error: func(ctx context.Context, ex *pipeline.Execution, err error) (*pipeline.Execution, error) {
			if v, ok := starts.LoadAndDelete(ex.ID); ok {
				duration.WithLabelValues(ex.Target).Observe(time.Since(v.(time.Time)).Seconds())
			}
			errs.WithLabelValues(ex.Target, string(contracts.KindOf(err))).Inc()
			return ex, err
		},
	}, nil
}
