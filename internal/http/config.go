package http

import (
	"maps"
	"time"
)

const (
	DefaultThreads      = 16
	DefaultChunkSize    = 2 * MiB
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = 500 * time.Millisecond
	DefaultStallTimeout = 30 * time.Second
	DefaultMaxRedirects = 10

	// MiB is the unit the size tiers are expressed in.
	MiB = 1 << 20
)

type ConfigOption func(*Config)

type Config struct {
	Threads        int               `json:"threads"`
	ChunkSize      int64             `json:"chunkSize"`
	MaxRetries     int               `json:"maxRetries"`
	RetryDelay     time.Duration     `json:"retryDelay,omitempty"`
	StallTimeout   time.Duration     `json:"stallTimeout,omitempty"`
	MaxRedirects   int               `json:"maxRedirects"`
	RateLimit      int64             `json:"rateLimit,omitempty"` // bytes per second, 0 disables
	AcceptFullBody bool              `json:"acceptFullBody,omitempty"`
	Headers        map[string]string `json:"headers,omitempty"`
}

func defaultConfig() *Config {
	return &Config{
		Threads:      DefaultThreads,
		ChunkSize:    DefaultChunkSize,
		MaxRetries:   DefaultMaxRetries,
		RetryDelay:   DefaultRetryDelay,
		StallTimeout: DefaultStallTimeout,
		MaxRedirects: DefaultMaxRedirects,
		Headers:      make(map[string]string),
	}
}

// NewConfig applies opts on top of the defaults.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Policy returns the base planning policy of the config.
func (c Config) Policy() Policy {
	return Policy{Threads: c.Threads, ChunkSize: c.ChunkSize}
}

func WithThreads(threads int) ConfigOption {
	return func(cfg *Config) {
		if threads <= 0 {
			threads = DefaultThreads
		}

		cfg.Threads = threads
	}
}

func WithChunkSize(size int64) ConfigOption {
	return func(cfg *Config) {
		if size <= 0 {
			size = DefaultChunkSize
		}

		cfg.ChunkSize = size
	}
}

// WithMaxRetries sets the retries after the first attempt. Zero disables retrying.
func WithMaxRetries(maxRetries int) ConfigOption {
	return func(cfg *Config) {
		if maxRetries < 0 {
			maxRetries = 0
		}

		cfg.MaxRetries = maxRetries
	}
}

func WithRetryDelay(retryDelay time.Duration) ConfigOption {
	return func(cfg *Config) {
		cfg.RetryDelay = retryDelay
	}
}

func WithStallTimeout(timeout time.Duration) ConfigOption {
	return func(cfg *Config) {
		if timeout <= 0 {
			timeout = DefaultStallTimeout
		}

		cfg.StallTimeout = timeout
	}
}

func WithMaxRedirects(maxRedirects int) ConfigOption {
	return func(cfg *Config) {
		if maxRedirects < 0 {
			maxRedirects = 0
		}

		cfg.MaxRedirects = maxRedirects
	}
}

func WithRateLimit(bytesPerSecond int64) ConfigOption {
	return func(cfg *Config) {
		cfg.RateLimit = bytesPerSecond
	}
}

func WithAcceptFullBody(accept bool) ConfigOption {
	return func(cfg *Config) {
		cfg.AcceptFullBody = accept
	}
}

func WithHeaders(headers map[string]string) ConfigOption {
	return func(cfg *Config) {
		cfg.Headers = maps.Clone(headers)
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string)
		}
	}
}
