package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	t.Parallel()
	e := New(ErrCodeNoHealthyServers, "dispatcher", "no healthy servers available")
	assert.Equal(t, "[NO_HEALTHY_SERVERS] dispatcher: no healthy servers available", e.Error())
	assert.False(t, e.Timestamp.IsZero())
}

func TestWrapPreservesCause(t *testing.T) {
	t.Parallel()
	cause := errors.New("connection refused")
	e := Wrap(cause, ErrCodeHandlerFailed, "dispatcher", "handler failed")

	assert.Contains(t, e.Error(), "connection refused")
	assert.ErrorIs(t, e, cause)
}

func TestWrapNilReturnsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, Wrap(nil, ErrCodeHandlerFailed, "dispatcher", "handler failed"))
}

func TestIsMatchesByCode(t *testing.T) {
	t.Parallel()
	a := NewNoHealthyServersError()
	b := NewNoHealthyServersError()
	c := NewBalancerClosedError()

	assert.ErrorIs(t, a, b)
	assert.NotErrorIs(t, a, c)
}

func TestCodeOfUnwrapsChain(t *testing.T) {
	t.Parallel()
	inner := NewHandlerFailedError("s1", errors.New("boom"))
	wrapped := fmt.Errorf("request failed: %w", inner)

	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeHandlerFailed, code)

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestHandlerFailedCarriesServerID(t *testing.T) {
	t.Parallel()
	e := NewHandlerFailedError("s1", errors.New("boom"))
	assert.Equal(t, "s1", e.ServerID)
	assert.Equal(t, ErrCodeHandlerFailed, e.Code)
}

func TestRetryable(t *testing.T) {
	t.Parallel()
	assert.True(t, Retryable(ErrCodeNoHealthyServers))
	assert.True(t, Retryable(ErrCodeHandlerFailed))
	assert.True(t, Retryable(ErrCodeRateLimitExceeded))
	assert.False(t, Retryable(ErrCodeInvalidConfig))
	assert.False(t, Retryable(ErrCodeBalancerClosed))
}

func TestHelpers(t *testing.T) {
	t.Parallel()
	assert.True(t, IsNoHealthyServers(NewNoHealthyServersError()))
	assert.False(t, IsNoHealthyServers(NewBalancerClosedError()))
	assert.False(t, IsNoHealthyServers(nil))

	assert.True(t, IsRateLimited(NewRateLimitError("client-1")))
	assert.False(t, IsRateLimited(NewNoHealthyServersError()))
}
