package llmpipe

import (
	"log/slog"

	"github.com/glimte/llmpipe-go/config"
	"github.com/glimte/llmpipe-go/pipeline"
)

type clientConfig struct {
	logger     *slog.Logger
	chain      []pipeline.Interceptor
	fileConfig *config.Config
	configPath string
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

// WithLogger sets the logger used by the client and by interceptors built
// from configuration.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithInterceptors sets an explicit chain, bypassing configuration-based
// assembly entirely.
func WithInterceptors(chain ...pipeline.Interceptor) ClientOption {
	return func(c *clientConfig) {
		if chain == nil {
			chain = []pipeline.Interceptor{}
		}
		c.chain = chain
	}
}

// WithConfig builds the chain from an in-memory configuration.
func WithConfig(cfg *config.Config) ClientOption {
	return func(c *clientConfig) {
		c.fileConfig = cfg
	}
}

// WithConfigFile builds the chain from a YAML configuration file, loaded
// when the client is constructed.
func WithConfigFile(path string) ClientOption {
	return func(c *clientConfig) {
		c.configPath = path
	}
}
