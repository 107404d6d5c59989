package http

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/NamanBalaji/updater/internal/errors"
	httpPkg "github.com/NamanBalaji/updater/pkg/http"
)

const (
	maxRetryAfter   = 30 * time.Second
	maxDrainOnClose = 64 * 1024
)

type requestFunc func(ctx context.Context, url string) (*http.Response, error)

// followRedirects runs do against url and every Location it is sent to,
// at most MaxRedirects times. It returns the final response and its URL.
func (d *Downloader) followRedirects(ctx context.Context, url string, do requestFunc) (*http.Response, string, error) {
	current := url

	for hops := 0; ; hops++ {
		resp, err := do(ctx, current)
		if err != nil {
			return nil, current, err
		}

		if !httpPkg.IsRedirect(resp.StatusCode) {
			return resp, current, nil
		}

		target, err := httpPkg.RedirectTarget(resp)
		discard(resp)

		if err != nil {
			return nil, current, err
		}

		if hops >= d.config.MaxRedirects {
			return nil, current, httpPkg.ErrTooManyRedirects
		}

		d.log.Debug().Str("from", current).Str("to", target).Int("status", resp.StatusCode).Msg("following redirect")
		current = target
	}
}

// discard drains a little of the body so the connection can be reused, then closes it.
func discard(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainOnClose)
	_ = resp.Body.Close()
}

// retryState is owned by the fetch loop of a single chunk.
type retryState struct {
	attempt     int
	nextRetryAt time.Time
	lastErr     error
}

// fail records a failed attempt and returns the wait before the next one.
func (s *retryState) fail(err error, base time.Duration) time.Duration {
	s.attempt++
	s.lastErr = err

	wait := calculateBackoff(s.attempt, base)
	if hint := errors.RetryAfter(err); hint > wait {
		wait = min(hint, maxRetryAfter)
	}

	s.nextRetryAt = time.Now().Add(wait)

	return wait
}

// calculateBackoff grows linearly: attempt 1 waits base, attempt 2 waits 2*base.
func calculateBackoff(attempt int, base time.Duration) time.Duration {
	if attempt < 1 {
		return 0
	}

	return time.Duration(attempt) * base
}

// isRetryableAttempt decides whether a failed attempt is worth another try.
// Any response or transport failure is; local disk failures and cancellation are not.
func isRetryableAttempt(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}

	if errors.IsIOError(err) {
		return false
	}

	return !errors.Is(err, context.Canceled)
}

// statusError turns an unusable response into a classified error carrying any Retry-After hint.
func statusError(resp *http.Response, url string) error {
	cause := httpPkg.ClassifyHTTPError(resp.StatusCode)
	if cause == nil {
		cause = httpPkg.ErrUnexpectedStatus
	}

	err := errors.NewHTTPError(cause, url, resp.StatusCode)

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		if hint := httpPkg.RetryAfter(resp); hint > 0 {
			return errors.WithRetryAfter(err, hint)
		}
	}

	return err
}
