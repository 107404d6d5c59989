package errors_test

import (
	"context"
	stdErrors "errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/NamanBalaji/updater/internal/errors"
)

func TestDownloadErrorError(t *testing.T) {
	io := errors.NewIOError(stdErrors.New("disk full"), "/tmp/setup.exe")
	assert.Equal(t, "[IO] /tmp/setup.exe: disk full", io.Error())

	status := errors.NewHTTPError(stdErrors.New("server error"), "http://example.com", 500)
	assert.Equal(t, "[PROTOCOL] http://example.com (status 500): server error", status.Error())
}

func TestChunkError(t *testing.T) {
	cause := errors.NewHTTPError(stdErrors.New("server error (5xx)"), "http://example.com/a.exe", 500)
	err := fmt.Errorf("scheduler: %w", errors.NewChunkError(2, 4, cause))

	assert.True(t, errors.Is(err, errors.ErrChunkFailed))
	assert.False(t, errors.Is(err, errors.ErrMergeFailed))

	var chunkErr *errors.ChunkError
	assert.True(t, errors.As(err, &chunkErr))
	assert.Equal(t, 2, chunkErr.Index)
	assert.Equal(t, 4, chunkErr.Attempts)
	assert.Contains(t, err.Error(), "chunk 2 failed after 4 attempts")
	assert.True(t, errors.IsRetryable(err))
}

func TestWrappedSentinels(t *testing.T) {
	base := stdErrors.New("boom")

	tests := []struct {
		name     string
		err      error
		sentinel error
		category errors.ErrorCategory
	}{
		{"probe", errors.NewProbeError(errors.NewNetworkError(base, "u", true), "u"), errors.ErrProbeFailed, errors.CategoryNetwork},
		{"merge", errors.NewMergeError(base, "/tmp/a"), errors.ErrMergeFailed, errors.CategoryIO},
		{"verify", errors.NewVerificationError(base, "/tmp/a"), errors.ErrVerificationFailed, errors.CategoryVerification},
		{"cancel", fmt.Errorf("stop: %w", errors.ErrCancelled), errors.ErrCancelled, errors.CategoryContext},
		{"dedup same", errors.ErrAlreadyInProgress, errors.ErrAlreadyInProgress, errors.CategoryConflict},
		{"dedup other", errors.ErrConflictingDownload, errors.ErrConflictingDownload, errors.CategoryConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, tt.sentinel))
			assert.Equal(t, tt.category, errors.Category(tt.err))
		})
	}
}

func TestCategory(t *testing.T) {
	assert.Equal(t, errors.ErrorCategory(""), errors.Category(nil))
	assert.Equal(t, errors.CategoryContext, errors.Category(context.Canceled))
	assert.Equal(t, errors.CategoryUnknown, errors.Category(stdErrors.New("x")))
	assert.Equal(t, errors.CategoryResource,
		errors.Category(errors.NewChunkError(0, 1, errors.NewHTTPError(stdErrors.New("nf"), "u", 404))))
	assert.Equal(t, errors.CategoryNetwork, errors.Category(errors.NewChunkError(0, 1, stdErrors.New("reset"))))
}

func TestNewHTTPError(t *testing.T) {
	tests := []struct {
		status    int
		retryable bool
		category  errors.ErrorCategory
	}{
		{500, true, errors.CategoryProtocol},
		{503, true, errors.CategoryProtocol},
		{501, false, errors.CategoryProtocol},
		{429, true, errors.CategoryProtocol},
		{401, false, errors.CategorySecurity},
		{403, false, errors.CategorySecurity},
		{404, false, errors.CategoryResource},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			de := errors.NewHTTPError(stdErrors.New("x"), "u", tt.status)
			assert.Equal(t, tt.category, de.Category)
			assert.Equal(t, tt.status, de.StatusCode)
			assert.Equal(t, tt.retryable, errors.IsRetryable(de))
		})
	}
}

func TestIsHelpers(t *testing.T) {
	base := stdErrors.New("e")

	assert.False(t, errors.IsRetryable(nil))
	assert.False(t, errors.IsRetryable(base))
	assert.True(t, errors.IsRetryable(errors.NewNetworkError(base, "r", true)))
	assert.True(t, errors.IsIOError(fmt.Errorf("wrapped: %w", errors.NewIOError(base, "r"))))
	assert.False(t, errors.IsIOError(errors.NewContextError(base, "r")))
}

func TestRetryAfter(t *testing.T) {
	de := errors.NewHTTPError(stdErrors.New("busy"), "u", 503)

	err := errors.WithRetryAfter(fmt.Errorf("attempt: %w", de), 7*time.Second)
	assert.Equal(t, 7*time.Second, de.RetryAfter)
	assert.Equal(t, 7*time.Second, errors.RetryAfter(err))

	plain := stdErrors.New("plain")
	assert.Same(t, plain, errors.WithRetryAfter(plain, time.Second))
	assert.Zero(t, errors.RetryAfter(plain))
}
