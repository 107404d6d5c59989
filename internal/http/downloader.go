package http

import (
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/NamanBalaji/updater/internal/logger"
	httpPkg "github.com/NamanBalaji/updater/pkg/http"
)

// Control is how a running transfer talks back to its session.
type Control interface {
	// Stopped reports that no new work should start.
	Stopped() bool
	// OnBytes receives every newly written byte count.
	OnBytes(n int64)
}

// Downloader probes, plans, fetches and merges one artifact at a time.
// It is safe for concurrent use by the fetchers of one session.
type Downloader struct {
	client  *httpPkg.Client
	config  *Config
	limiter *rate.Limiter
	log     zerolog.Logger
}

func New(client *httpPkg.Client, opts ...ConfigOption) *Downloader {
	if client == nil {
		client = httpPkg.NewClient()
	}

	cfg := NewConfig(opts...)

	return &Downloader{
		client:  client,
		config:  cfg,
		limiter: newLimiter(cfg.RateLimit),
		log:     logger.With("downloader"),
	}
}

// Config returns a copy of the effective configuration.
func (d *Downloader) Config() Config {
	return *d.config
}

func (d *Downloader) headers(extra map[string]string) map[string]string {
	headers := make(map[string]string, len(d.config.Headers)+len(extra))
	for k, v := range d.config.Headers {
		headers[k] = v
	}

	for k, v := range extra {
		headers[k] = v
	}

	return headers
}
