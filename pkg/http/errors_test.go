package http_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	httpmod "github.com/NamanBalaji/updater/pkg/http"
)

type fakeNetErr struct{ timeout bool }

func (e *fakeNetErr) Error() string   { return "fake net error" }
func (e *fakeNetErr) Timeout() bool   { return e.timeout }
func (e *fakeNetErr) Temporary() bool { return false }

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{200, nil},
		{206, nil},
		{304, httpmod.ErrUnexpectedStatus},
		{400, httpmod.ErrClientRequest},
		{401, httpmod.ErrAuthentication},
		{403, httpmod.ErrAccessDenied},
		{404, httpmod.ErrResourceNotFound},
		{405, httpmod.ErrHeadNotSupported},
		{410, httpmod.ErrGone},
		{416, httpmod.ErrRangesNotSupported},
		{429, httpmod.ErrTooManyRequests},
		{500, httpmod.ErrServerProblem},
		{501, httpmod.ErrNotImplemented},
		{503, httpmod.ErrServerProblem},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, httpmod.ClassifyHTTPError(tt.code))
		})
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name  string
		input error
		want  error
	}{
		{"deadline", context.DeadlineExceeded, httpmod.ErrTimeout},
		{"eof", io.EOF, httpmod.ErrUnexpectedEOF},
		{"unexpected eof", fmt.Errorf("read body: %w", io.ErrUnexpectedEOF), httpmod.ErrUnexpectedEOF},
		{"net timeout", &fakeNetErr{timeout: true}, httpmod.ErrTimeout},
		{"net error", &fakeNetErr{}, httpmod.ErrNetworkProblem},
		{"other", errors.New("some random error"), httpmod.ErrUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := httpmod.ClassifyError(tt.input)

			assert.ErrorIs(t, got, tt.want)
			assert.ErrorIs(t, got, tt.input, "cause must stay reachable")
		})
	}

	assert.NoError(t, httpmod.ClassifyError(nil))
	assert.Equal(t, context.Canceled, httpmod.ClassifyError(context.Canceled))
}

func TestIsFallbackError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{httpmod.ErrHeadNotSupported, true},
		{httpmod.ErrNotImplemented, true},
		{httpmod.ErrRangesNotSupported, true},
		{httpmod.ClassifyError(io.EOF), true},
		{httpmod.ErrResourceNotFound, false},
		{httpmod.ClassifyError(&fakeNetErr{}), false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, httpmod.IsFallbackError(tt.err), tt.err.Error())
	}
}
