package types

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Error(t *testing.T) {
	err := NewError(ErrMissingPayload, "no payload")
	assert.Equal(t, "[MISSING_PAYLOAD] no payload", err.Error())

	cause := errors.New("boom")
	err = NewError(ErrProviderTransient, "llm call failed").WithCause(cause)
	assert.Contains(t, err.Error(), "PROVIDER_TRANSIENT")
	assert.Contains(t, err.Error(), "boom")
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(ErrTransportConnection, "dial failed").WithCause(cause)
	assert.True(t, errors.Is(err, cause))
}

func TestError_Builders(t *testing.T) {
	err := NewError(ErrProviderTransient, "rate limited").
		WithRetryable(true).
		WithHTTPStatus(http.StatusTooManyRequests).
		WithProvider("llm")

	assert.True(t, err.Retryable)
	assert.Equal(t, http.StatusTooManyRequests, err.HTTPStatus)
	assert.Equal(t, "llm", err.Provider)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewError(ErrProviderTransient, "x").WithRetryable(true)))
	assert.False(t, IsRetryable(NewError(ErrProviderFatal, "x")))
	assert.False(t, IsRetryable(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, ErrMissingPayload, GetErrorCode(NewError(ErrMissingPayload, "x")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
}
