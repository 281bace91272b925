package types

import "fmt"

// ErrorCode represents a unified error code across the orchestrator.
type ErrorCode string

const (
	// ErrConfiguration marks an invalid or incomplete configuration.
	// Fatal at process start, never retried.
	ErrConfiguration ErrorCode = "CONFIGURATION"

	// ErrTransportConnection marks a failure to establish or keep the
	// audio transport. Fatal to the affected session.
	ErrTransportConnection ErrorCode = "TRANSPORT_CONNECTION"

	// ErrMissingPayload marks a context-injection request that carries
	// no payload under either accepted field name.
	ErrMissingPayload ErrorCode = "MISSING_PAYLOAD"

	// ErrSeedSourceRead marks an unreadable seed source (file or store).
	// The session proceeds unseeded; never fatal.
	ErrSeedSourceRead ErrorCode = "SEED_SOURCE_READ"

	// ErrProviderTransient marks a transient provider failure (rate
	// limit, network). Retried with backoff at the call boundary.
	ErrProviderTransient ErrorCode = "PROVIDER_TRANSIENT"

	// ErrProviderFatal marks an unusable provider response or auth
	// failure. Ends the current turn without retrying.
	ErrProviderFatal ErrorCode = "PROVIDER_FATAL"

	// ErrInvalidTransition marks an illegal session state transition.
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"

	// ErrSessionClosed marks an operation on a terminated session.
	ErrSessionClosed ErrorCode = "SESSION_CLOSED"

	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrRateLimited    ErrorCode = "RATE_LIMITED"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
