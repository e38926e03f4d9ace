package tracing

import (
	"context"
	"encoding/hex"
	"net/http"
	"strings"
)

const (
	// TraceparentHeader is the W3C Trace Context traceparent header name.
	TraceparentHeader = "traceparent"

	// TracestateHeader is the W3C Trace Context tracestate header name.
	TracestateHeader = "tracestate"

	traceparentVersion = "00"
	flagSampled        = 0x01
)

var defaultPropagator = NewW3CTraceContextPropagator()

// Extract reads the W3C traceparent header into the context, so that
// Start continues the remote trace. Without a valid header the context
// is returned unchanged.
func Extract(ctx context.Context, headers http.Header) context.Context {
	return defaultPropagator.Extract(ctx, HeaderCarrier(headers))
}

// Inject writes the current trace context into the headers as a W3C
// traceparent. Without a span in the context this is a no-op; the pool
// client calls it on every outgoing request.
func Inject(ctx context.Context, headers http.Header) {
	defaultPropagator.Inject(ctx, HeaderCarrier(headers))
}

// parseTraceparent parses a W3C traceparent header value.
//
// Format: {version}-{trace-id}-{parent-id}-{flags}
// Example: 00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
func parseTraceparent(traceparent string) (SpanContext, bool) {
	parts := strings.Split(traceparent, "-")
	if len(parts) != 4 {
		return SpanContext{}, false
	}
	version, traceID, spanID, flags := parts[0], parts[1], parts[2], parts[3]

	// Unknown versions still parse when the shape matches, for W3C
	// forward compatibility.
	if len(version) != 2 {
		return SpanContext{}, false
	}

	if !validHexID(traceID, 16) || !validHexID(spanID, 8) {
		return SpanContext{}, false
	}

	flagBytes, err := hex.DecodeString(flags)
	if err != nil || len(flagBytes) != 1 {
		return SpanContext{}, false
	}

	return SpanContext{
		TraceID: traceID,
		SpanID:  spanID,
		Sampled: flagBytes[0]&flagSampled != 0,
	}, true
}

// validHexID reports whether s is a hex string of size bytes that is
// not all zeros. All-zero IDs are invalid per the W3C spec.
func validHexID(s string, size int) bool {
	if len(s) != size*2 {
		return false
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return false
	}
	for _, c := range b {
		if c != 0 {
			return true
		}
	}
	return false
}

// formatTraceparent builds a traceparent header value.
func formatTraceparent(traceID, spanID string, sampled bool) string {
	flags := "00"
	if sampled {
		flags = "01"
	}
	return traceparentVersion + "-" + traceID + "-" + spanID + "-" + flags
}

// TraceIDFromContext returns the trace ID of the current span or
// propagated context, or "".
func TraceIDFromContext(ctx context.Context) string {
	if span := SpanFromContext(ctx); span != nil {
		return span.TraceID
	}
	if sc := SpanContextFromContext(ctx); sc.IsValid() {
		return sc.TraceID
	}
	return ""
}

// SpanIDFromContext returns the span ID of the current span or
// propagated context, or "".
func SpanIDFromContext(ctx context.Context) string {
	if span := SpanFromContext(ctx); span != nil {
		return span.SpanID
	}
	if sc := SpanContextFromContext(ctx); sc.IsValid() {
		return sc.SpanID
	}
	return ""
}

// Propagator moves trace context across process boundaries.
type Propagator interface {
	// Extract reads span context from a carrier into the context.
	Extract(ctx context.Context, carrier Carrier) context.Context
	// Inject writes span context from the context into a carrier.
	Inject(ctx context.Context, carrier Carrier)
}

// Carrier is a key-value transport for propagation data.
type Carrier interface {
	Get(key string) string
	Set(key, value string)
}

// HeaderCarrier adapts http.Header to the Carrier interface.
type HeaderCarrier http.Header

func (hc HeaderCarrier) Get(key string) string { return http.Header(hc).Get(key) }
func (hc HeaderCarrier) Set(key, value string) { http.Header(hc).Set(key, value) }

// W3CTraceContextPropagator implements the W3C Trace Context
// specification.
type W3CTraceContextPropagator struct{}

// NewW3CTraceContextPropagator creates a W3C propagator.
func NewW3CTraceContextPropagator() *W3CTraceContextPropagator {
	return &W3CTraceContextPropagator{}
}

// Extract reads span context from a carrier.
func (p *W3CTraceContextPropagator) Extract(ctx context.Context, carrier Carrier) context.Context {
	traceparent := carrier.Get(TraceparentHeader)
	if traceparent == "" {
		return ctx
	}

	sc, ok := parseTraceparent(traceparent)
	if !ok {
		return ctx
	}

	return contextWithSpanContext(ctx, sc)
}

// Inject writes span context into a carrier.
func (p *W3CTraceContextPropagator) Inject(ctx context.Context, carrier Carrier) {
	if span := SpanFromContext(ctx); span != nil {
		carrier.Set(TraceparentHeader, formatTraceparent(span.TraceID, span.SpanID, span.tracer != nil))
		return
	}

	if sc := SpanContextFromContext(ctx); sc.IsValid() {
		carrier.Set(TraceparentHeader, formatTraceparent(sc.TraceID, sc.SpanID, sc.Sampled))
	}
}
