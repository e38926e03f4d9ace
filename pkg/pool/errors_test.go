package pool

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyCodedError(t *testing.T) {
	err := Errorf(CodeUpstreamRateLimited, "provider throttled the request")
	assert.Equal(t, CodeUpstreamRateLimited, Classify(err))
}

func TestClassifyWrappedCodedError(t *testing.T) {
	inner := Errorf(CodeIndexOutOfRange, "no credential at index 7")
	wrapped := fmt.Errorf("set disabled: %w", inner)
	assert.Equal(t, CodeIndexOutOfRange, Classify(wrapped))

	pe, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, "no credential at index 7", pe.Message)
}

func TestClassifyFallback(t *testing.T) {
	tests := []struct {
		name string
		msg  string
		want ErrorCode
	}{
		{"out of range", "index 12 out of range (pool has 3 credentials)", CodeIndexOutOfRange},
		{"no credential at index", "no credential at index 4", CodeIndexOutOfRange},
		{"expired", "credential expired or invalid, refresh required", CodeUpstreamAuth},
		{"insufficient permission", "insufficient permission for usage endpoint", CodeUpstreamAuth},
		{"rate limited", "request was rate limited by the provider", CodeUpstreamRateLimited},
		{"server error", "provider returned server error (502)", CodeUpstreamUnavailable},
		{"token refresh failed", "token refresh failed after 3 attempts", CodeUpstreamUnavailable},
		{"temporarily unavailable", "usage service temporarily unavailable", CodeUpstreamUnavailable},
		{"connect", "error trying to connect: no route to host", CodeNetworkFailure},
		{"connection", "connection reset by peer", CodeNetworkFailure},
		{"timeout", "request timeout exceeded", CodeNetworkFailure},
		{"timed out", "dial tcp 127.0.0.1:4785: i/o timed out", CodeNetworkFailure},
		{"unknown", "something completely different went wrong", CodeInternal},
		{"empty-ish", "x", CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(errors.New(tt.msg)))
		})
	}
}

// Out-of-range signals win even when the message also mentions network or
// upstream trouble, so a lookup failure never masquerades as retryable.
func TestClassifyOutOfRangeDominates(t *testing.T) {
	err := errors.New("index 9 out of range: connection to upstream timed out during lookup")
	assert.Equal(t, CodeIndexOutOfRange, Classify(err))
}

// Every error classifies to exactly one code and repeated calls agree.
func TestClassifyTotalAndDeterministic(t *testing.T) {
	inputs := []error{
		nil,
		errors.New(""),
		errors.New("out of range"),
		errors.New("rate limited right after a timeout"),
		Errorf(CodeValidationFailure, "priority must be >= 0"),
		fmt.Errorf("wrap: %w", errors.New("connection refused")),
	}
	for _, err := range inputs {
		first := Classify(err)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Classify(err))
		}
	}
}

func TestClassifyTaggedBeatsFallback(t *testing.T) {
	// The message alone would classify as network_failure; the code wins.
	err := Errorf(CodeValidationFailure, "connection name must not be empty")
	assert.Equal(t, CodeValidationFailure, Classify(err))
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(errors.New("timed out waiting for pool"), CodeNetworkFailure))
	assert.False(t, IsCode(errors.New("timed out waiting for pool"), CodeInternal))
	assert.True(t, IsCode(Errorf(CodeUpstreamAuth, "expired"), CodeUpstreamAuth))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "boom", Errorf(CodeInternal, "boom").Error())
	assert.Equal(t, "internal", (&Error{Code: CodeInternal}).Error())
}

func TestIsUpstream(t *testing.T) {
	upstream := []ErrorCode{CodeUpstreamAuth, CodeUpstreamRateLimited, CodeUpstreamUnavailable, CodeNetworkFailure}
	for _, c := range upstream {
		assert.True(t, c.IsUpstream(), string(c))
	}
	notUpstream := []ErrorCode{CodeIndexOutOfRange, CodeValidationFailure, CodeInternal}
	for _, c := range notUpstream {
		assert.False(t, c.IsUpstream(), string(c))
	}
}
