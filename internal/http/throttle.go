package http

import (
	"context"

	"golang.org/x/time/rate"
)

const readBufferSize = 32 * 1024

// newLimiter returns a byte rate limiter shared by every fetcher, or nil when unlimited.
// The burst must cover a whole read buffer or WaitN would reject it.
func newLimiter(bytesPerSecond int64) *rate.Limiter {
	if bytesPerSecond <= 0 {
		return nil
	}

	burst := max(int(bytesPerSecond), readBufferSize)

	return rate.NewLimiter(rate.Limit(bytesPerSecond), burst)
}

func (d *Downloader) throttle(ctx context.Context, n int) error {
	if d.limiter == nil || n <= 0 {
		return nil
	}

	return d.limiter.WaitN(ctx, n)
}
