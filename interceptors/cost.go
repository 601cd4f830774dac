package interceptors

import (
	"context"
	"sync"
	"time"

	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/pipeline"
)

// CostEntry is one accounting record delivered to the cost sink.
type CostEntry struct {
	ExecutionID string
	Target      string
	Model       string
	Usage       contracts.Usage
	Cost        float64
	Elapsed     time.Duration
	Cached      bool
	ErrorKind   contracts.ErrorKind
	Err         error
}

// CostTotals accumulates cost across calls. One instance may be shared
// between interceptors and inspected concurrently.
type CostTotals struct {
	mu     sync.Mutex
	calls  int64
	tokens int64
	cost   float64
}

func (t *CostTotals) add(entry CostEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	t.tokens += int64(entry.Usage.TotalTokens)
	t.cost += entry.Cost
}

// Snapshot returns the accumulated calls, tokens, and cost.
func (t *CostTotals) Snapshot() (calls, tokens int64, cost float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls, t.tokens, t.cost
}

// CostConfig configures the cost accounting interceptor.
type CostConfig struct {
	// PromptPricePer1K and CompletionPricePer1K are USD prices per thousand
	// tokens.
	PromptPricePer1K     float64
	CompletionPricePer1K float64

	// Sink receives one entry per finished call. Optional.
	Sink func(entry CostEntry)

	// Totals, when set, accumulates successful-call usage and cost.
	Totals *CostTotals
}

// CostTracking returns a pure observer interceptor that derives call cost
// from the response usage and reports it to the configured sink. Failed
// calls are reported with their classified kind and zero cost; the error is
// passed through untouched.
func CostTracking(cfg CostConfig) pipeline.Interceptor {
	var starts sync.Map // execution ID -> time.Time

	elapsed := func(ex *pipeline.Execution) time.Duration {
		v, ok := starts.LoadAndDelete(ex.ID)
		if !ok {
			return 0
		}
		return time.Since(v.(time.Time))
	}

	emit := func(entry CostEntry) {
		if cfg.Totals != nil && entry.Err == nil {
			cfg.Totals.add(entry)
		}
		if cfg.Sink != nil {
			cfg.Sink(entry)
		}
	}

	return pipeline.Interceptor{
		Name: "cost",
		Enter: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			starts.Store(ex.ID, time.Now())
			return ex, nil
		},
		Leave: func(ctx context.Context, ex *pipeline.Execution) (*pipeline.Execution, error) {
			entry := CostEntry{
				ExecutionID: ex.ID,
				Target:      ex.Target,
				Elapsed:     elapsed(ex),
				Cached:      ex.Terminated(),
				Err:         ex.Err,
			}
			if ex.Err != nil {
				entry.ErrorKind = contracts.KindOf(ex.Err)
			}
			if resp := ex.Response; resp != nil {
				entry.Model = resp.Model
				entry.Usage = resp.Usage
				if !entry.Cached {
					entry.Cost = float64(resp.Usage.PromptTokens)/1000*cfg.PromptPricePer1K +
						float64(resp.Usage.CompletionTokens)/1000*cfg.CompletionPricePer1K
				}
			}
			emit(entry)
			return ex, nil
		},
		Error: func(ctx context.Context, ex *pipeline.Execution, err error) (*pipeline.Execution, error) {
			emit(CostEntry{
				ExecutionID: ex.ID,
				Target:      ex.Target,
				Elapsed:     elapsed(ex),
				ErrorKind:   contracts.KindOf(err),
				Err:         err,
			})
			return ex, err
		},
	}
}
