package http

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/rs/zerolog"
	"github.com/vfaronov/httpheader"

	"github.com/NamanBalaji/updater/internal/logger"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultIdleTimeout    = 90 * time.Second
	keepAlivePeriod       = 30 * time.Second
	maxIdleConns          = 100
	tlsHandshakeTimeout   = 10 * time.Second
	expectContinueTimeout = 1 * time.Second
	maxConnsPerHost       = 32
	maxDrain              = 4 << 10

	DefaultUserAgent = "Updater/1.0"

	defaultDownloadName = "download"
)

type Client struct {
	*http.Client

	log zerolog.Logger
}

// NewClient creates a client tuned for many parallel range requests to one host.
// Redirects are returned to the caller instead of being followed.
func NewClient() *Client {
	dialer := &net.Dialer{Timeout: defaultConnectTimeout, KeepAlive: keepAlivePeriod}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          maxIdleConns,
		MaxIdleConnsPerHost:   maxConnsPerHost,
		MaxConnsPerHost:       maxConnsPerHost,
		IdleConnTimeout:       defaultIdleTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: expectContinueTimeout,
		DisableCompression:    true,
	}

	return &Client{
		Client: &http.Client{
			Transport: transport,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: logger.With("http"),
	}
}

// Head sends a HEAD request bounded by the connect timeout.
// 4xx and 5xx answers become classified errors, redirects are returned as is.
func (c *Client) Head(ctx context.Context, urlStr string, headers map[string]string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	resp, err := c.send(ctx, http.MethodHead, urlStr, headers)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		closeBody(resp)
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	return resp, nil
}

// Range asks for bytes start..end inclusive. Anything but a 206 or a redirect
// means the server does not serve ranges for this URL.
func (c *Client) Range(ctx context.Context, urlStr string, start, end int64, headers map[string]string) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultConnectTimeout)
	defer cancel()

	withRange := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		withRange[k] = v
	}

	withRange["Range"] = fmt.Sprintf("bytes=%d-%d", start, end)

	resp, err := c.send(ctx, http.MethodGet, urlStr, withRange)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusPartialContent || IsRedirect(resp.StatusCode) {
		return resp, nil
	}

	closeBody(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, ClassifyHTTPError(resp.StatusCode)
	}

	c.log.Warn().Str("url", urlStr).Int("status", resp.StatusCode).Msg("server ignored range request")

	return nil, ErrRangesNotSupported
}

// Open starts a streaming GET. The caller owns the body, the status check and
// any deadline, so no timeout is applied here.
func (c *Client) Open(ctx context.Context, urlStr string, headers map[string]string) (*http.Response, error) {
	return c.send(ctx, http.MethodGet, urlStr, headers)
}

func (c *Client) send(ctx context.Context, method, urlStr string, headers map[string]string) (*http.Response, error) {
	req, err := newRequest(ctx, method, urlStr, headers)
	if err != nil {
		return nil, err
	}

	resp, err := c.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", method).Str("url", urlStr).Msg("request failed")
		return nil, ClassifyError(err)
	}

	c.log.Debug().Str("method", method).Str("url", urlStr).Int("status", resp.StatusCode).Msg("response")

	return resp, nil
}

// IsRedirect reports whether a status carries a Location to follow.
func IsRedirect(statusCode int) bool {
	switch statusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}

	return false
}

// RedirectTarget resolves the Location header of a redirect response.
func RedirectTarget(resp *http.Response) (string, error) {
	loc := resp.Header.Get("Location")
	if loc == "" {
		return "", ErrMissingLocation
	}

	target, err := url.Parse(loc)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingLocation, err)
	}

	if resp.Request != nil && resp.Request.URL != nil {
		target = resp.Request.URL.ResolveReference(target)
	}

	return target.String(), nil
}

func newRequest(ctx context.Context, method, urlStr string, headers map[string]string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, urlStr, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %w", ErrRequestCreation, method, urlStr, err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)

	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return req, nil
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrain))
	_ = resp.Body.Close()
}

// GetFilename tries extracts the filename from the Content-Disposition header or the URL.
func GetFilename(resp *http.Response) string {
	if _, name, _ := httpheader.ContentDisposition(resp.Header); name != "" {
		return path.Base(name)
	}

	u := resp.Request.URL
	if qname := u.Query().Get("filename"); qname != "" {
		return qname
	}

	base := path.Base(u.Path)
	if base != "" && base != "/" && base != "." {
		return base
	}

	return defaultDownloadName
}

// ContentType returns the media type of a response without parameters.
func ContentType(resp *http.Response) string {
	mtype, _ := httpheader.ContentType(resp.Header)
	return mtype
}

// RetryAfter returns how long the server asked us to wait, or zero.
func RetryAfter(resp *http.Response) time.Duration {
	at := httpheader.RetryAfter(resp.Header)
	if at.IsZero() {
		return 0
	}

	d := time.Until(at)
	if d < 0 {
		return 0
	}

	return d
}

// ParseLastModified parses the Last-Modified header.
func ParseLastModified(header string) time.Time {
	if header == "" {
		return time.Time{}
	}

	t, _ := http.ParseTime(header)

	return t
}
