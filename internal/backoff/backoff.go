// Package backoff provides retry delay policies for the retry interceptor.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy computes the delay to wait before retry attempt n (zero-based).
type Policy interface {
	Delay(attempt int) time.Duration
}

// Exponential grows the delay by Multiplier per attempt, capped at Max.
// Jitter is applied separately via Jitter so callers can combine the base
// delay with external hints first.
type Exponential struct {
	Initial        time.Duration
	Max            time.Duration
	Multiplier     float64
	JitterFraction float64
}

// NewExponential creates an exponential policy with sane fallbacks for
// zero-valued fields.
func NewExponential(initial, max time.Duration, multiplier, jitterFraction float64) *Exponential {
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	if max <= 0 {
		max = 30 * time.Second
	}
	if multiplier < 1 {
		multiplier = 2.0
	}
	return &Exponential{
		Initial:        initial,
		Max:            max,
		Multiplier:     multiplier,
		JitterFraction: jitterFraction,
	}
}

// Delay implements Policy. The returned delay carries no jitter.
func (e *Exponential) Delay(attempt int) time.Duration {
	d := float64(e.Initial) * math.Pow(e.Multiplier, float64(attempt))
	if d > float64(e.Max) {
		d = float64(e.Max)
	}
	return time.Duration(d)
}

// Jitter adds up to JitterFraction of d as random jitter.
func (e *Exponential) Jitter(d time.Duration) time.Duration {
	if e.JitterFraction <= 0 {
		return d
	}
	return d + time.Duration(rand.Float64()*e.JitterFraction*float64(d))
}

// Fixed waits the same interval before every attempt.
type Fixed struct {
	Interval time.Duration
}

// Delay implements Policy.
func (f *Fixed) Delay(int) time.Duration {
	return f.Interval
}
