// Admin operation error taxonomy.
//
// Every facade failure is classified into exactly one of three kinds:
// NotFoundError (the index has no credential behind it), UpstreamError
// (the upstream provider or the network path to it failed; retryable),
// InternalError (validation or daemon-side failure; not retryable without
// operator intervention). Messages are surfaced verbatim: this is a
// trusted operator surface and the daemon's diagnostics are the payload.

package admin

import (
	"fmt"

	"github.com/creddhq/credd/pkg/pool"
)

// NotFoundError reports an index with no credential behind it. Total is
// the pool size at classification time, echoed for diagnostics.
type NotFoundError struct {
	Index int
	Total int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("credential %d not found (pool has %d credentials)", e.Index, e.Total)
}

// UpstreamError reports an upstream-provider or network failure. Only the
// balance path can produce one; the other operations resolve inside the
// local daemon.
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// InternalError is the catch-all for validation and daemon-side failures.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return e.Message
}

// classifySimple maps a facade error for the locally resolved operations:
// out-of-range becomes NotFoundError; everything else, including the
// upstream codes that cannot legitimately occur here, is internal.
func classifySimple(err error, index, total int) error {
	if err == nil {
		return nil
	}
	if pool.Classify(err) == pool.CodeIndexOutOfRange {
		return &NotFoundError{Index: index, Total: total}
	}
	return &InternalError{Message: err.Error()}
}

// classifyBalance additionally recognizes the upstream and network codes.
func classifyBalance(err error, index, total int) error {
	if err == nil {
		return nil
	}
	code := pool.Classify(err)
	switch {
	case code == pool.CodeIndexOutOfRange:
		return &NotFoundError{Index: index, Total: total}
	case code.IsUpstream():
		return &UpstreamError{Message: err.Error()}
	}
	return &InternalError{Message: err.Error()}
}
