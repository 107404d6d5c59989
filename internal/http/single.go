package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/NamanBalaji/updater/internal/errors"
	httpPkg "github.com/NamanBalaji/updater/pkg/http"
)

// ErrEmptyBody is returned when the whole-file response carries no bytes.
var ErrEmptyBody = errors.New("server returned an empty body")

// totalSetter is implemented by controls that want the size learned from the response.
type totalSetter interface {
	SetTotal(total int64)
}

// Stream fetches the whole artifact in one request. Unlike the chunked path
// there is no retry: the first error aborts. The body is written to
// PartPath(destPath) and renamed into place on success.
func (d *Downloader) Stream(ctx context.Context, url, destPath string, ctl Control) (int64, error) {
	headers := d.headers(map[string]string{"Accept-Encoding": "identity"})

	resp, resolved, err := d.followRedirects(ctx, url, func(ctx context.Context, u string) (*http.Response, error) {
		return d.client.Open(ctx, u, headers)
	})
	if err != nil {
		if ctx.Err() != nil {
			return 0, errors.NewContextError(errors.ErrCancelled, url)
		}

		return 0, errors.NewNetworkError(err, url, false)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp, resolved)
	}

	if resp.ContentLength > 0 {
		if ts, ok := ctl.(totalSetter); ok {
			ts.SetTotal(resp.ContentLength)
		}
	}

	d.log.Info().Str("url", resolved).Int64("size", resp.ContentLength).Msg("streaming artifact")

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return 0, errors.NewIOError(fmt.Errorf("create destination directory: %w", err), destPath)
	}

	part := PartPath(destPath)

	written, err := d.copyBody(ctx, resp.Body, part, ctl)
	if err != nil {
		_ = os.Remove(part)
		return written, err
	}

	if written == 0 {
		_ = os.Remove(part)
		return 0, errors.NewNetworkError(ErrEmptyBody, resolved, false)
	}

	if err := os.Rename(part, destPath); err != nil {
		_ = os.Remove(part)
		return written, errors.NewIOError(fmt.Errorf("move into place: %w", err), destPath)
	}

	return written, nil
}

func (d *Downloader) copyBody(ctx context.Context, body io.Reader, path string, ctl Control) (int64, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, errors.NewIOError(fmt.Errorf("create file: %w", err), path)
	}
	defer file.Close()

	buf := make([]byte, readBufferSize)

	var written int64

	for {
		if ctl.Stopped() || ctx.Err() != nil {
			return written, errors.NewContextError(errors.ErrCancelled, path)
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if err := d.throttle(ctx, n); err != nil {
				return written, errors.NewContextError(errors.ErrCancelled, path)
			}

			if _, err := file.Write(buf[:n]); err != nil {
				return written, errors.NewIOError(fmt.Errorf("write file: %w", err), path)
			}

			written += int64(n)
			ctl.OnBytes(int64(n))
		}

		if readErr == io.EOF {
			break
		}

		if readErr != nil {
			if ctx.Err() != nil {
				return written, errors.NewContextError(errors.ErrCancelled, path)
			}

			return written, errors.NewNetworkError(httpPkg.ClassifyError(readErr), path, false)
		}
	}

	if err := file.Sync(); err != nil {
		return written, errors.NewIOError(fmt.Errorf("sync file: %w", err), path)
	}

	return written, nil
}
