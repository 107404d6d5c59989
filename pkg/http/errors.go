package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
)

// Probe and range negotiation.
var (
	ErrHeadNotSupported    = errors.New("HEAD method not supported by server")
	ErrNotImplemented      = errors.New("method not implemented (501)")
	ErrRangesNotSupported  = errors.New("byte ranges not supported by server")
	ErrInvalidContentRange = errors.New("invalid Content-Range header")
	ErrMissingLocation     = errors.New("redirect without a usable Location header")
	ErrTooManyRedirects    = errors.New("too many redirects")
)

// Transport failures. ClassifyError wraps the cause with one of these.
var (
	ErrTimeout         = errors.New("operation timed out")
	ErrNetworkProblem  = errors.New("network-related error")
	ErrUnexpectedEOF   = errors.New("unexpected EOF")
	ErrRequestCreation = errors.New("failed to create request")
	ErrUnknown         = errors.New("unknown error")
)

// Status failures.
var (
	ErrServerProblem    = errors.New("server error (5xx)")
	ErrTooManyRequests  = errors.New("too many requests (429)")
	ErrResourceNotFound = errors.New("resource not found (404)")
	ErrAccessDenied     = errors.New("access denied (403)")
	ErrAuthentication   = errors.New("authentication required (401)")
	ErrGone             = errors.New("resource gone (410)")
	ErrClientRequest    = errors.New("client error (4xx)")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

var statusErrors = map[int]error{
	http.StatusNotFound:                     ErrResourceNotFound,
	http.StatusForbidden:                    ErrAccessDenied,
	http.StatusUnauthorized:                 ErrAuthentication,
	http.StatusGone:                         ErrGone,
	http.StatusMethodNotAllowed:             ErrHeadNotSupported,
	http.StatusNotImplemented:               ErrNotImplemented,
	http.StatusRequestedRangeNotSatisfiable: ErrRangesNotSupported,
	http.StatusTooManyRequests:              ErrTooManyRequests,
}

// ClassifyHTTPError maps a status code to a sentinel, nil for 1xx and 2xx.
func ClassifyHTTPError(statusCode int) error {
	if err, ok := statusErrors[statusCode]; ok {
		return err
	}

	switch {
	case statusCode >= http.StatusInternalServerError:
		return ErrServerProblem
	case statusCode >= http.StatusBadRequest:
		return ErrClientRequest
	case statusCode >= http.StatusMultipleChoices:
		return ErrUnexpectedStatus
	}

	return nil
}

// ClassifyError wraps a transport error with its sentinel and keeps the cause.
// Cancellation passes through unchanged.
func ClassifyError(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}

	var sentinel error

	var netErr net.Error

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		sentinel = ErrTimeout
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		sentinel = ErrUnexpectedEOF
	case errors.As(err, &netErr) && netErr.Timeout():
		sentinel = ErrTimeout
	case errors.As(err, &netErr):
		sentinel = ErrNetworkProblem
	default:
		sentinel = ErrUnknown
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}

// IsFallbackError reports whether a failed probe should retry with a lesser method.
func IsFallbackError(err error) bool {
	return errors.Is(err, ErrHeadNotSupported) || errors.Is(err, ErrNotImplemented) ||
		errors.Is(err, ErrRangesNotSupported) || errors.Is(err, ErrUnexpectedEOF)
}
