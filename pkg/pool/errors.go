package pool

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is the closed set of error tags crossing the pool facade.
// Admin-layer classification switches on these instead of message text.
type ErrorCode string

const (
	// CodeIndexOutOfRange means the addressed credential index does not
	// exist in the pool.
	CodeIndexOutOfRange ErrorCode = "index_out_of_range"
	// CodeUpstreamAuth means the upstream provider rejected the credential
	// (expired, revoked, or lacking permission).
	CodeUpstreamAuth ErrorCode = "upstream_auth_failure"
	// CodeUpstreamRateLimited means the upstream provider throttled the call.
	CodeUpstreamRateLimited ErrorCode = "upstream_rate_limited"
	// CodeUpstreamUnavailable means the upstream provider failed or is
	// temporarily down (5xx, refresh failure).
	CodeUpstreamUnavailable ErrorCode = "upstream_unavailable"
	// CodeNetworkFailure means the network path to the daemon or upstream
	// failed (connect, timeout).
	CodeNetworkFailure ErrorCode = "network_failure"
	// CodeValidationFailure means the request was rejected before reaching
	// the upstream (bad priority value, malformed credential, ...).
	CodeValidationFailure ErrorCode = "validation_failure"
	// CodeInternal is the catch-all for daemon-side failures.
	CodeInternal ErrorCode = "internal"
)

// Error is a coded facade error. Message carries the daemon's diagnostic
// text verbatim; Code is what callers should branch on.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

// Errorf builds a coded Error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AsError unwraps err to a coded *Error if one is in the chain.
func AsError(err error) (*Error, bool) {
	var pe *Error
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code, either directly or via
// the message-content fallback.
func IsCode(err error, code ErrorCode) bool {
	return Classify(err) == code
}

// Substring signals for untagged errors. These mirror the message phrases
// the pre-coded daemons emitted. Order matters: out-of-range dominates, and
// upstream HTTP phrases are checked before the broader network phrases.
var (
	outOfRangeSignals = []string{
		"out of range",
		"no credential at index",
	}
	upstreamAuthSignals = []string{
		"credential expired",
		"expired or invalid",
		"invalid credential",
		"insufficient permission",
	}
	upstreamRateSignals = []string{
		"rate limited",
		"too many requests",
	}
	upstreamDownSignals = []string{
		"server error",
		"token refresh failed",
		"temporarily unavailable",
	}
	networkSignals = []string{
		"error trying to connect",
		"connection",
		"timeout",
		"timed out",
	}
)

// Classify maps any error to an ErrorCode. Coded errors return their own
// tag; untagged errors fall back to message-content matching. The mapping
// is total: every error classifies to exactly one code, and out-of-range
// signals win regardless of other content.
func Classify(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if pe, ok := AsError(err); ok && pe.Code != "" {
		return pe.Code
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, outOfRangeSignals) {
		return CodeIndexOutOfRange
	}
	if containsAny(msg, upstreamAuthSignals) {
		return CodeUpstreamAuth
	}
	if containsAny(msg, upstreamRateSignals) {
		return CodeUpstreamRateLimited
	}
	if containsAny(msg, upstreamDownSignals) {
		return CodeUpstreamUnavailable
	}
	if containsAny(msg, networkSignals) {
		return CodeNetworkFailure
	}
	return CodeInternal
}

// IsUpstream reports whether code indicates an upstream-provider or network
// failure, the retryable class of the admin taxonomy.
func (c ErrorCode) IsUpstream() bool {
	switch c {
	case CodeUpstreamAuth, CodeUpstreamRateLimited, CodeUpstreamUnavailable, CodeNetworkFailure:
		return true
	}
	return false
}

func containsAny(msg string, signals []string) bool {
	for _, s := range signals {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
