package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	Is     = errors.Is
	As     = errors.As
	New    = errors.New
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// ErrorCategory groups failures by what the user can do about them.
type ErrorCategory string

const (
	CategoryNetwork      ErrorCategory = "NETWORK"
	CategoryProtocol     ErrorCategory = "PROTOCOL"
	CategoryIO           ErrorCategory = "IO"
	CategoryResource     ErrorCategory = "RESOURCE"
	CategorySecurity     ErrorCategory = "SECURITY"
	CategoryContext      ErrorCategory = "CONTEXT"
	CategoryVerification ErrorCategory = "VERIFICATION"
	CategoryConflict     ErrorCategory = "CONFLICT" // the download slot is taken
	CategoryUnknown      ErrorCategory = "UNKNOWN"
)

// Download pipeline failures. Callers match them with Is.
var (
	ErrProbeFailed         = New("probe failed")
	ErrChunkFailed         = New("chunk failed")
	ErrMergeFailed         = New("merge failed")
	ErrCancelled           = New("download cancelled")
	ErrAlreadyInProgress   = New("download already in progress")
	ErrConflictingDownload = New("conflicting download in progress")
	ErrVerificationFailed  = New("verification failed")
)

// DownloadError attaches a category and the resource involved to a cause.
type DownloadError struct {
	Err        error
	Category   ErrorCategory
	Resource   string
	StatusCode int
	Retryable  bool
	// RetryAfter is the server's hint for the next attempt, zero when absent.
	RetryAfter time.Duration
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s (status %d): %v", e.Category, e.Resource, e.StatusCode, e.Err)
	}

	return fmt.Sprintf("[%s] %s: %v", e.Category, e.Resource, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

func wrap(category ErrorCategory, err error, resource string, retryable bool) *DownloadError {
	return &DownloadError{Err: err, Category: category, Resource: resource, Retryable: retryable}
}

// ChunkError reports a chunk whose retries were exhausted.
type ChunkError struct {
	Index    int
	Attempts int
	Err      error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d failed after %d attempts: %v", e.Index, e.Attempts, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}

// Is makes every ChunkError match ErrChunkFailed.
func (e *ChunkError) Is(target error) bool {
	return target == ErrChunkFailed
}

// NewChunkError creates the terminal error for a chunk.
func NewChunkError(index, attempts int, err error) *ChunkError {
	return &ChunkError{Index: index, Attempts: attempts, Err: err}
}

// NewProbeError wraps a metadata request failure, keeping the cause's category.
func NewProbeError(err error, resource string) *DownloadError {
	category := CategoryNetwork

	var cause *DownloadError
	if As(err, &cause) {
		category = cause.Category
	}

	return wrap(category, fmt.Errorf("%w: %w", ErrProbeFailed, err), resource, false)
}

// NewMergeError wraps an assembly failure. Merge errors are never retried.
func NewMergeError(err error, resource string) *DownloadError {
	return wrap(CategoryIO, fmt.Errorf("%w: %w", ErrMergeFailed, err), resource, false)
}

// NewVerificationError wraps a rejected artifact.
func NewVerificationError(err error, resource string) *DownloadError {
	return wrap(CategoryVerification, fmt.Errorf("%w: %w", ErrVerificationFailed, err), resource, false)
}

func NewNetworkError(err error, resource string, retryable bool) *DownloadError {
	return wrap(CategoryNetwork, err, resource, retryable)
}

func NewIOError(err error, resource string) *DownloadError {
	return wrap(CategoryIO, err, resource, false)
}

func NewContextError(err error, resource string) *DownloadError {
	return wrap(CategoryContext, err, resource, false)
}

// NewHTTPError categorizes a failed response by its status.
// 5xx (except 501) and 429 are retryable.
func NewHTTPError(err error, resource string, statusCode int) *DownloadError {
	e := wrap(CategoryProtocol, err, resource, false)
	e.StatusCode = statusCode

	switch {
	case statusCode == http.StatusTooManyRequests:
		e.Retryable = true
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		e.Category = CategorySecurity
	case statusCode >= http.StatusInternalServerError:
		e.Retryable = statusCode != http.StatusNotImplemented
	case statusCode >= http.StatusBadRequest:
		e.Category = CategoryResource
	}

	return e
}

// WithRetryAfter records a server wait hint on the DownloadError inside err.
// Errors without one are returned unchanged.
func WithRetryAfter(err error, wait time.Duration) error {
	var de *DownloadError
	if As(err, &de) {
		de.RetryAfter = wait
	}

	return err
}

// RetryAfter returns the wait hint carried by err, zero when there is none.
func RetryAfter(err error) time.Duration {
	var de *DownloadError
	if As(err, &de) {
		return de.RetryAfter
	}

	return 0
}

func IsRetryable(err error) bool {
	var de *DownloadError
	return As(err, &de) && de.Retryable
}

func IsIOError(err error) bool {
	var de *DownloadError
	return As(err, &de) && de.Category == CategoryIO
}

// Category maps any error to the category shown to users.
// Sentinels win over the category stored on a wrapping DownloadError.
func Category(err error) ErrorCategory {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrCancelled), Is(err, context.Canceled):
		return CategoryContext
	case Is(err, ErrAlreadyInProgress), Is(err, ErrConflictingDownload):
		return CategoryConflict
	case Is(err, ErrVerificationFailed):
		return CategoryVerification
	case Is(err, ErrMergeFailed):
		return CategoryIO
	}

	var de *DownloadError
	if As(err, &de) {
		return de.Category
	}

	if Is(err, ErrChunkFailed) || Is(err, ErrProbeFailed) {
		return CategoryNetwork
	}

	return CategoryUnknown
}
