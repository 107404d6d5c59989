package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/NamanBalaji/updater/internal/errors"
	httpPkg "github.com/NamanBalaji/updater/pkg/http"
)

var (
	ErrRangeMismatch = errors.New("response does not cover the requested range")
	ErrShortChunk    = errors.New("chunk body ended early")
)

// FetchChunk downloads one task into its temp file under tempDir, retrying
// transient failures with a linear backoff. onBytes receives only bytes that
// were never reported before, so a retried chunk does not count twice.
func (d *Downloader) FetchChunk(ctx context.Context, url string, task ChunkTask, tempDir string, onBytes func(int64)) (ChunkResult, error) {
	path := ChunkPath(tempDir, task.Index)
	log := d.log.With().Int("chunk", task.Index).Logger()

	var (
		state    retryState
		reported int64
	)

	progress := func(written int64) {
		if written > reported {
			delta := written - reported
			reported = written

			if onBytes != nil {
				onBytes(delta)
			}
		}
	}

	for {
		n, err := d.fetchAttempt(ctx, url, task, path, progress)
		if err == nil {
			log.Debug().Int64("bytes", n).Int("attempts", state.attempt+1).Msg("chunk complete")
			return ChunkResult{Index: task.Index, TempFilePath: path, ByteCount: n}, nil
		}

		if ctx.Err() != nil {
			return ChunkResult{}, errors.NewContextError(ctx.Err(), url)
		}

		if !isRetryableAttempt(ctx, err) || state.attempt >= d.config.MaxRetries {
			log.Error().Err(err).Int("attempts", state.attempt+1).Msg("chunk failed")
			return ChunkResult{}, errors.NewChunkError(task.Index, state.attempt+1, err)
		}

		wait := state.fail(err, d.config.RetryDelay)
		log.Warn().Err(err).Int("attempt", state.attempt).Dur("backoff", wait).Msg("chunk attempt failed, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ChunkResult{}, errors.NewContextError(ctx.Err(), url)
		case <-timer.C:
		}
	}
}

// fetchAttempt performs one ranged request. The attempt is aborted when no
// bytes arrive for StallTimeout.
func (d *Downloader) fetchAttempt(ctx context.Context, url string, task ChunkTask, path string, progress func(int64)) (int64, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stall := time.AfterFunc(d.config.StallTimeout, cancel)
	defer stall.Stop()

	headers := d.headers(map[string]string{
		"Range":           task.rangeHeader(),
		"Accept-Encoding": "identity",
	})

	resp, resolved, err := d.followRedirects(attemptCtx, url, func(ctx context.Context, u string) (*http.Response, error) {
		return d.client.Open(ctx, u, headers)
	})
	if err != nil {
		return 0, d.attemptError(ctx, attemptCtx, err, url)
	}
	defer resp.Body.Close()

	if err := d.checkRangeResponse(resp, resolved, task); err != nil {
		return 0, err
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.NewIOError(fmt.Errorf("create chunk file: %w", err), path)
	}
	defer file.Close()

	want := task.Len()
	buf := make([]byte, readBufferSize)

	var written int64

	for written < want {
		n, readErr := resp.Body.Read(buf[:min(int64(len(buf)), want-written)])
		if n > 0 {
			stall.Reset(d.config.StallTimeout)

			if err := d.throttle(attemptCtx, n); err != nil {
				return written, d.attemptError(ctx, attemptCtx, err, url)
			}

			if _, err := file.Write(buf[:n]); err != nil {
				return written, errors.NewIOError(fmt.Errorf("write chunk file: %w", err), path)
			}

			written += int64(n)
			progress(written)
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			return written, d.attemptError(ctx, attemptCtx, readErr, url)
		}
	}

	if written != want {
		return written, errors.NewNetworkError(fmt.Errorf("%w: got %d of %d bytes", ErrShortChunk, written, want), url, true)
	}

	return written, nil
}

// checkRangeResponse accepts a 206 for exactly the task's range, or a 200 that
// can only be this range.
func (d *Downloader) checkRangeResponse(resp *http.Response, url string, task ChunkTask) error {
	switch resp.StatusCode {
	case http.StatusPartialContent:
		if header := resp.Header.Get("Content-Range"); header != "" {
			start, end, _, err := parseContentRange(header)
			if err != nil {
				return errors.NewNetworkError(err, url, true)
			}

			if start != task.Start || end < task.End {
				return errors.NewNetworkError(fmt.Errorf("%w: asked %s, got %s", ErrRangeMismatch, task.rangeHeader(), header),
					url, true)
			}
		}

		return nil

	case http.StatusOK:
		if task.Start == 0 && (resp.ContentLength == task.Len() || d.config.AcceptFullBody) {
			return nil
		}

		return errors.NewHTTPError(fmt.Errorf("%w: server ignored %s", ErrRangeMismatch, task.rangeHeader()),
			url, resp.StatusCode)

	default:
		return statusError(resp, url)
	}
}

// attemptError classifies a transport failure. A cancelled attempt context
// with a live parent means the stall timer fired.
func (d *Downloader) attemptError(parent, attempt context.Context, err error, url string) error {
	if parent.Err() != nil {
		return errors.NewContextError(parent.Err(), url)
	}

	if attempt.Err() != nil {
		return errors.NewNetworkError(fmt.Errorf("%w: no data for %s", httpPkg.ErrTimeout, d.config.StallTimeout), url, true)
	}

	return errors.NewNetworkError(httpPkg.ClassifyError(err), url, true)
}
