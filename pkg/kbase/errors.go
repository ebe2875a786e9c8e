package kbase

import (
	"errors"
	"fmt"
)

// Standard JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603

	// Server error range: -32000 to -32099
	ErrCodeServerError = -32000
)

// Service specific error codes (in server error range).
const (
	ErrCodeAuthFailed    = -32400
	ErrCodeNotAuthorized = -32401
	ErrCodeNotFound      = -32404
)

var (
	// ErrNoCallbackURL indicates the client has nowhere to send calls.
	ErrNoCallbackURL = errors.New("no callback URL configured")

	// ErrEmptyResult indicates a call succeeded but returned no usable result.
	ErrEmptyResult = errors.New("empty result")
)

// HTTPError represents an HTTP-level error (non-200 response).
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsRetryable returns true for server-side and rate limiting failures.
func (e *HTTPError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// Error wraps a service error with the method that failed.
type Error struct {
	// Op is the method that failed.
	Op string

	// Code is the error code (if from RPC).
	Code int

	// Message is the error message.
	Message string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s: [%d] %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with operation context.
func WrapError(op string, err error) *Error {
	return &Error{Op: op, Err: err, Message: err.Error()}
}

// FromRPCError converts an RPCError to an Error.
func FromRPCError(op string, rpcErr *RPCError) *Error {
	return &Error{
		Op:      op,
		Code:    rpcErr.Code,
		Message: rpcErr.Message,
	}
}

// IsAuthError reports whether err is an authentication or authorization
// failure.
func IsAuthError(err error) bool {
	code, ok := errorCode(err)
	return ok && (code == ErrCodeAuthFailed || code == ErrCodeNotAuthorized)
}

// IsNotFoundError reports whether err indicates a missing method or object.
func IsNotFoundError(err error) bool {
	code, ok := errorCode(err)
	return ok && (code == ErrCodeNotFound || code == ErrCodeMethodNotFound)
}

// IsRetryable returns true if the error is likely transient and the request
// should be retried.
func IsRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	code, ok := errorCode(err)
	if !ok {
		return false
	}
	if code >= -32099 && code <= -32000 {
		return code != ErrCodeAuthFailed && code != ErrCodeNotAuthorized
	}
	return code == ErrCodeInternalError
}

func errorCode(err error) (int, bool) {
	var e *Error
	if errors.As(err, &e) && e.Code != 0 {
		return e.Code, true
	}
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr.Code, true
	}
	return 0, false
}
