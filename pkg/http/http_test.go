package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpmod "github.com/NamanBalaji/updater/pkg/http"
)

func TestGetFilename(t *testing.T) {
	tests := []struct {
		name        string
		disposition string
		url         string
		want        string
	}{
		{"disposition", `attachment; filename="setup.exe"`, "http://example.com/ignored", "setup.exe"},
		{"extended disposition wins", `attachment; filename="a.exe"; filename*=UTF-8''b%20c.exe`, "http://example.com/ignored", "b c.exe"},
		{"disposition path stripped", `attachment; filename="../../evil.exe"`, "http://example.com/ignored", "evil.exe"},
		{"url path", "", "http://example.com/releases/v2/app-setup.exe", "app-setup.exe"},
		{"query param", "", "http://example.com/download?filename=app.msi", "app.msi"},
		{"default", "", "http://example.com/", "download"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(tt.url)
			require.NoError(t, err)

			resp := &http.Response{Header: http.Header{}, Request: &http.Request{URL: u}}
			if tt.disposition != "" {
				resp.Header.Set("Content-Disposition", tt.disposition)
			}

			assert.Equal(t, tt.want, httpmod.GetFilename(resp))
		})
	}
}

func mustParseURL(raw string) *url.URL {
	u, _ := url.Parse(raw)
	return u
}

func TestParseLastModified(t *testing.T) {
	parsed := httpmod.ParseLastModified("Mon, 02 Jan 2006 15:04:05 GMT")
	assert.False(t, parsed.IsZero())

	assert.True(t, httpmod.ParseLastModified("Not a date").IsZero())
	assert.True(t, httpmod.ParseLastModified("").IsZero())
}

func TestContentTypeAndRetryAfter(t *testing.T) {
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set("Content-Type", "application/x-msdownload; charset=binary")
	resp.Header.Set("Retry-After", "2")
	resp.Header.Set("Date", time.Now().UTC().Format(http.TimeFormat))

	assert.Equal(t, "application/x-msdownload", httpmod.ContentType(resp))

	wait := httpmod.RetryAfter(resp)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 2*time.Second)

	assert.Equal(t, time.Duration(0), httpmod.RetryAfter(&http.Response{Header: http.Header{}}))
}

func TestRedirectTarget(t *testing.T) {
	req := &http.Request{URL: mustParseURL("http://example.com/a/b")}

	t.Run("relative location", func(t *testing.T) {
		resp := &http.Response{StatusCode: 302, Header: http.Header{"Location": {"../c/setup.exe"}}, Request: req}

		got, err := httpmod.RedirectTarget(resp)
		require.NoError(t, err)
		assert.Equal(t, "http://example.com/c/setup.exe", got)
	})

	t.Run("absolute location", func(t *testing.T) {
		resp := &http.Response{StatusCode: 301, Header: http.Header{"Location": {"https://cdn.example.com/x"}}, Request: req}

		got, err := httpmod.RedirectTarget(resp)
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/x", got)
	})

	t.Run("missing location", func(t *testing.T) {
		resp := &http.Response{StatusCode: 302, Header: http.Header{}, Request: req}

		_, err := httpmod.RedirectTarget(resp)
		assert.ErrorIs(t, err, httpmod.ErrMissingLocation)
	})
}

func TestIsRedirect(t *testing.T) {
	for _, code := range []int{301, 302, 303, 307, 308} {
		assert.True(t, httpmod.IsRedirect(code), code)
	}

	for _, code := range []int{200, 206, 304, 404} {
		assert.False(t, httpmod.IsRedirect(code), code)
	}
}

func TestClient_DoesNotFollowRedirects(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/old" {
			http.Redirect(w, r, "/new", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	client := httpmod.NewClient()

	resp, err := client.Head(context.Background(), ts.URL+"/old", nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusFound, resp.StatusCode)

	target, err := httpmod.RedirectTarget(resp)
	require.NoError(t, err)
	assert.Equal(t, ts.URL+"/new", target)
}

func TestClient_HeadAndRange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, httpmod.DefaultUserAgent, r.Header.Get("User-Agent"))
		assert.Equal(t, "value", r.Header.Get("X-Test"))

		if r.Header.Get("Range") == "bytes=0-0" {
			w.Header().Set("Content-Range", "bytes 0-0/100")
			w.WriteHeader(http.StatusPartialContent)
		}
	})
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/moved", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := httpmod.NewClient()
	ctx := context.Background()
	headers := map[string]string{"X-Test": "value"}

	resp, err := client.Head(ctx, ts.URL+"/ok", headers)
	require.NoError(t, err)
	resp.Body.Close()

	_, err = client.Head(ctx, ts.URL+"/missing", nil)
	assert.ErrorIs(t, err, httpmod.ErrResourceNotFound)

	resp, err = client.Range(ctx, ts.URL+"/ok", 0, 0, headers)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "bytes 0-0/100", resp.Header.Get("Content-Range"))
	assert.Len(t, headers, 1, "caller headers must not gain a Range entry")

	resp, err = client.Range(ctx, ts.URL+"/moved", 0, 0, nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	_, err = client.Range(ctx, ts.URL+"/plain", 0, 0, nil)
	assert.ErrorIs(t, err, httpmod.ErrRangesNotSupported)

	_, err = client.Range(ctx, ts.URL+"/missing", 0, 0, nil)
	assert.ErrorIs(t, err, httpmod.ErrResourceNotFound)
}

func TestClient_Open(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "identity", r.Header.Get("Accept-Encoding"))
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	client := httpmod.NewClient()

	resp, err := client.Open(context.Background(), ts.URL, map[string]string{"Accept-Encoding": "identity"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestClient_OpenNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := ts.URL
	ts.Close()

	_, err := httpmod.NewClient().Open(context.Background(), addr, nil)
	assert.ErrorIs(t, err, httpmod.ErrNetworkProblem)
}
