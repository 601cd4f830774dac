// Package llmpipe wires interceptor chains around chat backend calls. The
// engine lives in the pipeline package, the built-in interceptor library in
// the interceptors package; this package is the caller-facing facade.
package llmpipe

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glimte/llmpipe-go/config"
	"github.com/glimte/llmpipe-go/contracts"
	"github.com/glimte/llmpipe-go/pipeline"
)

// Client runs chat calls through a fixed interceptor chain. One client is
// safe for concurrent use: each call gets its own Execution, and the only
// cross-call state lives inside individual interceptor instances.
type Client struct {
	target string
	work   pipeline.UnitOfWork
	chain  []pipeline.Interceptor
	logger *slog.Logger
}

// NewClient creates a client around a unit of work, typically a provider
// client's call function.
func NewClient(target string, work pipeline.UnitOfWork, options ...ClientOption) (*Client, error) {
	if work == nil {
		return nil, fmt.Errorf("llmpipe: unit of work must not be nil")
	}

	cfg := &clientConfig{
		logger: slog.Default(),
	}
	for _, opt := range options {
		opt(cfg)
	}

	chain := cfg.chain
	if chain == nil {
		fileConfig := cfg.fileConfig
		if cfg.configPath != "" {
			loaded, err := config.Load(cfg.configPath)
			if err != nil {
				return nil, fmt.Errorf("llmpipe: %w", err)
			}
			fileConfig = loaded
		}
		built, err := config.Build(fileConfig, cfg.logger)
		if err != nil {
			return nil, fmt.Errorf("llmpipe: failed to build chain: %w", err)
		}
		chain = built
	}

	return &Client{
		target: target,
		work:   work,
		chain:  chain,
		logger: cfg.logger,
	}, nil
}

// Chat runs one chat call through the chain and returns the final response.
// Errors that no interceptor recovered are returned verbatim.
func (c *Client) Chat(ctx context.Context, req *contracts.ChatRequest, opts *contracts.CallOptions) (*contracts.ChatResponse, error) {
	return pipeline.Call(ctx, c.target, req, opts, c.chain, c.work)
}

// ChatExecution is Chat with the final Execution exposed, for callers that
// need transformed request/options or interceptor metadata.
func (c *Client) ChatExecution(ctx context.Context, req *contracts.ChatRequest, opts *contracts.CallOptions) (*pipeline.Execution, error) {
	return pipeline.CallExecution(ctx, c.target, req, opts, c.chain, c.work)
}

// Target returns the provider tag this client calls.
func (c *Client) Target() string {
	return c.target
}

// Interceptors returns a snapshot of the client's chain in order.
func (c *Client) Interceptors() []pipeline.Interceptor {
	out := make([]pipeline.Interceptor, len(c.chain))
	copy(out, c.chain)
	return out
}
