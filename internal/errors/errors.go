package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode identifies a failure class for programmatic handling
type ErrorCode string

const (
	// ErrCodeNoHealthyServers indicates the eligible candidate list was empty:
	// the pool is empty, every server is unhealthy, or every breaker is open.
	ErrCodeNoHealthyServers ErrorCode = "NO_HEALTHY_SERVERS"
	// ErrCodeHandlerFailed indicates the caller-supplied handler failed on
	// every attempt of the retry budget.
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"
	// ErrCodeHealthProbeFailed is internal to the health monitor; it is never
	// surfaced to handleRequest callers.
	ErrCodeHealthProbeFailed ErrorCode = "HEALTH_PROBE_FAILED"
	// ErrCodeRateLimitExceeded indicates the per-client limiter rejected the request
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInvalidConfig indicates a configuration snapshot failed validation
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeBalancerClosed indicates an operation after Destroy
	ErrCodeBalancerClosed ErrorCode = "BALANCER_CLOSED"
)

// BalancerError is a structured error carrying a code, the originating
// component, and an optional underlying cause.
type BalancerError struct {
	Code      ErrorCode `json:"code"`
	Component string    `json:"component"`
	Message   string    `json:"message"`
	ServerID  string    `json:"server_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Cause     error     `json:"-"`
}

// Error implements the error interface
func (e *BalancerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Code, e.Component, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Component, e.Message)
}

// Unwrap returns the underlying cause
func (e *BalancerError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code
func (e *BalancerError) Is(target error) bool {
	if t, ok := target.(*BalancerError); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a BalancerError without a cause
func New(code ErrorCode, component, message string) *BalancerError {
	return &BalancerError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Wrap creates a BalancerError with an underlying cause
func Wrap(err error, code ErrorCode, component, message string) *BalancerError {
	if err == nil {
		return nil
	}
	return &BalancerError{
		Code:      code,
		Component: component,
		Message:   message,
		Timestamp: time.Now(),
		Cause:     err,
	}
}

// NewNoHealthyServersError creates the error raised when no eligible
// candidate exists.
func NewNoHealthyServersError() *BalancerError {
	return New(ErrCodeNoHealthyServers, "dispatcher", "no healthy servers available")
}

// NewHandlerFailedError creates the error returned after the retry budget is
// exhausted, wrapping the last handler failure.
func NewHandlerFailedError(serverID string, cause error) *BalancerError {
	e := Wrap(cause, ErrCodeHandlerFailed, "dispatcher",
		fmt.Sprintf("handler failed after retries on server %s", serverID))
	e.ServerID = serverID
	return e
}

// NewRateLimitError creates the error returned when the per-client limiter
// rejects a request.
func NewRateLimitError(clientKey string) *BalancerError {
	return New(ErrCodeRateLimitExceeded, "rate_limiter",
		fmt.Sprintf("rate limit exceeded for client %q", clientKey))
}

// NewBalancerClosedError creates the error returned for operations on a
// destroyed balancer.
func NewBalancerClosedError() *BalancerError {
	return New(ErrCodeBalancerClosed, "balancer", "balancer has been destroyed")
}

// CodeOf extracts the error code from an error chain
func CodeOf(err error) (ErrorCode, bool) {
	var be *BalancerError
	if errors.As(err, &be) {
		return be.Code, true
	}
	return "", false
}

// Retryable reports whether a failure class may clear up on a later request.
// Configuration and lifecycle errors are permanent until the caller acts.
func Retryable(code ErrorCode) bool {
	switch code {
	case ErrCodeNoHealthyServers, ErrCodeHandlerFailed, ErrCodeRateLimitExceeded:
		return true
	default:
		return false
	}
}

// IsNoHealthyServers reports whether the error chain contains a
// NO_HEALTHY_SERVERS error.
func IsNoHealthyServers(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeNoHealthyServers
}

// IsRateLimited reports whether the error chain contains a
// RATE_LIMIT_EXCEEDED error.
func IsRateLimited(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrCodeRateLimitExceeded
}
