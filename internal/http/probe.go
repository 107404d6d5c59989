package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/NamanBalaji/updater/internal/errors"
	httpPkg "github.com/NamanBalaji/updater/pkg/http"
)

// ProbeResult is what a metadata request tells us about an artifact.
type ProbeResult struct {
	URL           string    `json:"url"`
	ResolvedURL   string    `json:"resolvedUrl"`
	Size          int64     `json:"size"` // 0 when unknown
	SupportsRange bool      `json:"supportsRange"`
	Filename      string    `json:"filename"`
	ContentType   string    `json:"contentType,omitempty"`
	ETag          string    `json:"etag,omitempty"`
	LastModified  time.Time `json:"lastModified,omitempty"`
}

// Probe issues a metadata-only request for url. Redirects are followed up to
// the configured cap. Servers that reject HEAD are asked for a single byte
// instead, and as a last resort a plain GET is opened and closed.
// Probing is never retried.
func (d *Downloader) Probe(ctx context.Context, url string) (*ProbeResult, error) {
	d.log.Debug().Str("url", url).Msg("probing artifact")

	result, err := d.probeHead(ctx, url)
	if err != nil && httpPkg.IsFallbackError(err) {
		d.log.Debug().Err(err).Str("url", url).Msg("HEAD rejected, probing with a range request")
		result, err = d.probeRange(ctx, url)
	}

	if err != nil && httpPkg.IsFallbackError(err) {
		d.log.Debug().Err(err).Str("url", url).Msg("range probe rejected, probing with GET")
		result, err = d.probeGet(ctx, url)
	}

	if err != nil {
		d.log.Error().Err(err).Str("url", url).Msg("probe failed")
		return nil, errors.NewProbeError(err, url)
	}

	result.URL = url

	d.log.Info().
		Str("url", result.ResolvedURL).
		Int64("size", result.Size).
		Bool("ranges", result.SupportsRange).
		Str("filename", result.Filename).
		Msg("probe complete")

	return result, nil
}

func (d *Downloader) probeHead(ctx context.Context, url string) (*ProbeResult, error) {
	headers := d.headers(nil)

	resp, resolved, err := d.followRedirects(ctx, url, func(ctx context.Context, u string) (*http.Response, error) {
		return d.client.Head(ctx, u, headers)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result := describe(resp, resolved)
	result.SupportsRange = acceptsRanges(resp)

	return result, nil
}

func (d *Downloader) probeRange(ctx context.Context, url string) (*ProbeResult, error) {
	headers := d.headers(map[string]string{"Accept-Encoding": "identity"})

	resp, resolved, err := d.followRedirects(ctx, url, func(ctx context.Context, u string) (*http.Response, error) {
		return d.client.Range(ctx, u, 0, 0, headers)
	})
	if err != nil {
		return nil, err
	}
	defer discard(resp)

	size, err := parseContentRangeTotal(resp.Header.Get("Content-Range"))
	if err != nil {
		return nil, err
	}

	result := describe(resp, resolved)
	result.Size = size
	result.SupportsRange = true

	return result, nil
}

func (d *Downloader) probeGet(ctx context.Context, url string) (*ProbeResult, error) {
	headers := d.headers(map[string]string{"Accept-Encoding": "identity"})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, resolved, err := d.followRedirects(ctx, url, func(ctx context.Context, u string) (*http.Response, error) {
		return d.client.Open(ctx, u, headers)
	})
	if err != nil {
		return nil, err
	}
	// The body is abandoned, cancel tears the connection down.
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp, resolved)
	}

	result := describe(resp, resolved)
	result.SupportsRange = acceptsRanges(resp)

	return result, nil
}

func describe(resp *http.Response, resolved string) *ProbeResult {
	size := resp.ContentLength
	if size < 0 {
		size = 0
	}

	return &ProbeResult{
		ResolvedURL:  resolved,
		Size:         size,
		Filename:     httpPkg.GetFilename(resp),
		ContentType:  httpPkg.ContentType(resp),
		ETag:         resp.Header.Get("ETag"),
		LastModified: httpPkg.ParseLastModified(resp.Header.Get("Last-Modified")),
	}
}

func acceptsRanges(resp *http.Response) bool {
	for _, v := range strings.Split(resp.Header.Get("Accept-Ranges"), ",") {
		if strings.EqualFold(strings.TrimSpace(v), "bytes") {
			return true
		}
	}

	return false
}

// parseContentRangeTotal reads the complete length out of "bytes a-b/total".
func parseContentRangeTotal(header string) (int64, error) {
	_, _, total, err := parseContentRange(header)
	if err != nil {
		return 0, err
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: unknown length in %q", httpPkg.ErrInvalidContentRange, header)
	}

	return total, nil
}

// parseContentRange parses "bytes a-b/total". An unknown total ("*") is returned as -1.
func parseContentRange(header string) (start, end, total int64, err error) {
	spec, ok := strings.CutPrefix(strings.TrimSpace(header), "bytes ")
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", httpPkg.ErrInvalidContentRange, header)
	}

	rng, size, ok := strings.Cut(spec, "/")
	if !ok {
		return 0, 0, 0, fmt.Errorf("%w: %q", httpPkg.ErrInvalidContentRange, header)
	}

	if _, err = fmt.Sscanf(rng, "%d-%d", &start, &end); err != nil || end < start {
		return 0, 0, 0, fmt.Errorf("%w: %q", httpPkg.ErrInvalidContentRange, header)
	}

	total = -1
	if size != "*" {
		if _, err = fmt.Sscanf(size, "%d", &total); err != nil {
			return 0, 0, 0, fmt.Errorf("%w: %q", httpPkg.ErrInvalidContentRange, header)
		}
	}

	return start, end, total, nil
}
