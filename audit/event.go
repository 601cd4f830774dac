// Package audit defines the pipeline audit event model and sinks for
// shipping events out of process. The Audit interceptor in the interceptors
// package emits one event per phase transition; sinks decide where they go
// (structured logs, an AMQP exchange).
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Phase names the pipeline phase an event was emitted from.
type Phase string

const (
	PhaseEnter Phase = "enter"
	PhaseLeave Phase = "leave"
	PhaseError Phase = "error"
)

// Event is one audit record for a pipeline phase transition.
type Event struct {
	ID          string        `json:"id"`
	ExecutionID string        `json:"executionId"`
	Phase       Phase         `json:"phase"`
	Target      string        `json:"target"`
	Model       string        `json:"model,omitempty"`
	Error       string        `json:"error,omitempty"`
	Elapsed     time.Duration `json:"elapsed,omitempty"`
	At          time.Time     `json:"at"`
}

// NewEvent stamps identity and time onto an event skeleton.
func NewEvent(executionID string, phase Phase, target string) Event {
	return Event{
		ID:          uuid.NewString(),
		ExecutionID: executionID,
		Phase:       phase,
		Target:      target,
		At:          time.Now(),
	}
}

// Sink receives audit events. Implementations must tolerate concurrent
// Publish calls.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// SlogSink writes audit events to a structured logger.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink creates a logger-backed sink.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogSink{logger: logger}
}

// Publish implements Sink.
func (s *SlogSink) Publish(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "pipeline audit event",
		"eventId", event.ID,
		"executionId", event.ExecutionID,
		"phase", event.Phase,
		"target", event.Target,
		"model", event.Model,
		"error", event.Error,
		"elapsed", event.Elapsed,
	)
	return nil
}

// Close implements Sink.
func (s *SlogSink) Close() error {
	return nil
}
