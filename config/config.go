// Package config loads pipeline configuration from YAML and assembles the
// corresponding interceptor chain.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/glimte/llmpipe-go/interceptors"
	"github.com/glimte/llmpipe-go/pipeline"
)

// Config is the YAML pipeline configuration. Sections left nil are omitted
// from the assembled chain.
type Config struct {
	Retry     *RetrySection     `yaml:"retry"`
	Cache     *CacheSection     `yaml:"cache"`
	RateLimit *RateLimitSection `yaml:"rateLimit"`
	Trim      *TrimSection      `yaml:"trim"`
	Logging   *LoggingSection   `yaml:"logging"`
}

// RetrySection configures the retry interceptor.
type RetrySection struct {
	MaxAttempts    int     `yaml:"maxAttempts"`
	InitialDelayMs int     `yaml:"initialDelayMs"`
	MaxDelayMs     int     `yaml:"maxDelayMs"`
	Multiplier     float64 `yaml:"multiplier"`
	JitterFraction float64 `yaml:"jitterFraction"`
}

// CacheSection configures the cache interceptor.
type CacheSection struct {
	Enabled bool `yaml:"enabled"`
	TTLMs   int  `yaml:"ttlMs"`
}

// RateLimitSection configures the rate limit interceptor.
type RateLimitSection struct {
	RequestsPerMinute int `yaml:"requestsPerMinute"`
	BurstSize         int `yaml:"burstSize"`
}

// TrimSection configures context-window trimming. Mode is "window" or
// "token".
type TrimSection struct {
	Mode                   string `yaml:"mode"`
	Limit                  int    `yaml:"limit"`
	PreserveSystemMessages bool   `yaml:"preserveSystemMessages"`
}

// LoggingSection configures the logging interceptor.
type LoggingSection struct {
	Level        string   `yaml:"level"`
	LogRequest   bool     `yaml:"logRequest"`
	LogResponse  bool     `yaml:"logResponse"`
	RedactFields []string `yaml:"redactFields"`
}

// Default returns a configuration with logging and three retry attempts, no
// cache, no rate limit, no trimming.
func Default() *Config {
	return &Config{
		Retry:   &RetrySection{MaxAttempts: 3, InitialDelayMs: 100, MaxDelayMs: 30000, Multiplier: 2.0, JitterFraction: 0.2},
		Logging: &LoggingSection{Level: "info"},
	}
}

// Load reads and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the interceptors cannot honor.
func (c *Config) Validate() error {
	if c.Retry != nil && c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("config: retry.maxAttempts must not be negative, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry != nil && c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		return fmt.Errorf("config: retry.multiplier must be at least 1, got %g", c.Retry.Multiplier)
	}
	if c.RateLimit != nil && c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("config: rateLimit.requestsPerMinute must be positive, got %d", c.RateLimit.RequestsPerMinute)
	}
	if c.Trim != nil {
		if c.Trim.Mode != "window" && c.Trim.Mode != "token" {
			return fmt.Errorf("config: trim.mode must be %q or %q, got %q", "window", "token", c.Trim.Mode)
		}
		if c.Trim.Limit <= 0 {
			return fmt.Errorf("config: trim.limit must be positive, got %d", c.Trim.Limit)
		}
	}
	if c.Logging != nil && c.Logging.Level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.Logging.Level)); err != nil {
			return fmt.Errorf("config: invalid logging.level %q: %w", c.Logging.Level, err)
		}
	}
	return nil
}

// Build assembles the interceptor chain for a configuration. Order is fixed,
// outermost first: logging, rate limit, trim, cache, retry. Trimming runs
// before the cache so cache keys are computed over the trimmed request.
func Build(cfg *Config, logger *slog.Logger) ([]pipeline.Interceptor, error) {
	if cfg == nil {
		cfg = Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	var chain []pipeline.Interceptor

	if l := cfg.Logging; l != nil {
		var lvl slog.Level
		if l.Level != "" {
			_ = lvl.UnmarshalText([]byte(l.Level))
		}
		chain = append(chain, interceptors.Logging(interceptors.LoggingConfig{
			Logger:       logger,
			Level:        lvl,
			LogRequest:   l.LogRequest,
			LogResponse:  l.LogResponse,
			RedactFields: l.RedactFields,
		}))
	}

	if rl := cfg.RateLimit; rl != nil {
		chain = append(chain, interceptors.RateLimit(interceptors.RateLimitConfig{
			RequestsPerMinute: rl.RequestsPerMinute,
			BurstSize:         rl.BurstSize,
		}))
	}

	if t := cfg.Trim; t != nil {
		trimCfg := interceptors.TrimConfig{
			Limit:                  t.Limit,
			PreserveSystemMessages: t.PreserveSystemMessages,
		}
		switch t.Mode {
		case "window":
			chain = append(chain, interceptors.WindowTrim(trimCfg))
		case "token":
			chain = append(chain, interceptors.TokenTrim(trimCfg))
		}
	}

	if c := cfg.Cache; c != nil && c.Enabled {
		chain = append(chain, interceptors.Cache(interceptors.CacheConfig{
			TTL: time.Duration(c.TTLMs) * time.Millisecond,
		}))
	}

	if r := cfg.Retry; r != nil && r.MaxAttempts > 0 {
		chain = append(chain, interceptors.Retry(interceptors.RetryConfig{
			MaxAttempts:    r.MaxAttempts,
			InitialDelay:   time.Duration(r.InitialDelayMs) * time.Millisecond,
			MaxDelay:       time.Duration(r.MaxDelayMs) * time.Millisecond,
			Multiplier:     r.Multiplier,
			JitterFraction: r.JitterFraction,
			Logger:         logger,
		}))
	}

	return chain, nil
}
