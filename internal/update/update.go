package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/rs/zerolog"

	"github.com/NamanBalaji/updater/internal/errors"
	"github.com/NamanBalaji/updater/internal/logger"
)

const checkPath = "/api/update/check"

var (
	ErrNoEndpoint    = errors.New("update endpoint is not configured")
	ErrMissingURL    = errors.New("update announced without a download url")
	ErrBadStatusCode = errors.New("update check failed")
)

// Query identifies the running installation.
type Query struct {
	CurrentVersion string
	Platform       string
	AppID          string
}

// Info is the endpoint's answer.
type Info struct {
	HasUpdate   bool   `json:"has_update"`
	Version     string `json:"version"`
	DownloadURL string `json:"download_url"`
	FileSize    int64  `json:"file_size"`
	Changelog   string `json:"changelog"`
	ForceUpdate bool   `json:"force_update"`
	SHA256      string `json:"sha256,omitempty"`
}

// Client talks to the update metadata API.
type Client struct {
	endpoint string
	http     *http.Client
	log      zerolog.Logger
}

// NewClient creates a client for endpoint. A zero timeout leaves requests bounded only by ctx.
func NewClient(endpoint string, timeout time.Duration) *Client {
	c := cleanhttp.DefaultPooledClient()
	c.Timeout = timeout

	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		http:     c,
		log:      logger.With("update"),
	}
}

// Check asks whether a newer release exists for q.
func (c *Client) Check(ctx context.Context, q Query) (*Info, error) {
	if c.endpoint == "" {
		return nil, ErrNoEndpoint
	}

	params := url.Values{}
	params.Set("current_version", q.CurrentVersion)
	params.Set("platform", q.Platform)
	params.Set("app_id", q.AppID)

	target := c.endpoint + checkPath + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build update request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewContextError(ctx.Err(), target)
		}

		return nil, errors.NewNetworkError(err, target, true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

		return nil, errors.NewHTTPError(fmt.Errorf("%w: status %d", ErrBadStatusCode, resp.StatusCode), target, resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, errors.NewNetworkError(fmt.Errorf("decode update response: %w", err), target, false)
	}

	if info.HasUpdate && info.DownloadURL == "" {
		return nil, ErrMissingURL
	}

	c.log.Debug().Bool("hasUpdate", info.HasUpdate).Str("version", info.Version).Msg("update check finished")

	return &info, nil
}
