package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// Exporter delivers ended spans to a backend.
type Exporter interface {
	// Export sends a batch of spans.
	Export(spans []*Span) error
	// Shutdown releases exporter resources.
	Shutdown(ctx context.Context) error
}

// ============================================================================
// StdoutExporter - prints spans as JSON (for dev/debug)
// ============================================================================

// StdoutExporter writes spans to stdout as JSON lines.
type StdoutExporter struct {
	mu     sync.Mutex
	writer io.Writer
	pretty bool
}

// StdoutOption configures a StdoutExporter.
type StdoutOption func(*StdoutExporter)

// WithWriter redirects output, mainly for tests.
func WithWriter(w io.Writer) StdoutOption {
	return func(e *StdoutExporter) { e.writer = w }
}

// WithPrettyPrint indents the JSON output.
func WithPrettyPrint() StdoutOption {
	return func(e *StdoutExporter) { e.pretty = true }
}

// NewStdoutExporter creates a stdout exporter.
func NewStdoutExporter(opts ...StdoutOption) *StdoutExporter {
	e := &StdoutExporter{writer: os.Stdout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export writes each span as JSON.
func (e *StdoutExporter) Export(spans []*Span) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, span := range spans {
		output := spanToOutput(span)
		var data []byte
		var err error
		if e.pretty {
			data, err = json.MarshalIndent(output, "", "  ")
		} else {
			data, err = json.Marshal(output)
		}
		if err != nil {
			return fmt.Errorf("tracing: marshal span: %w", err)
		}
		fmt.Fprintln(e.writer, string(data))
	}
	return nil
}

// Shutdown is a no-op for the stdout exporter.
func (e *StdoutExporter) Shutdown(context.Context) error { return nil }

// spanOutput is the JSON structure for stdout output. Durations are
// rendered human-readable, unlike the OTLP wire format.
type spanOutput struct {
	TraceID       string            `json:"traceId"`
	SpanID        string            `json:"spanId"`
	ParentID      string            `json:"parentId,omitempty"`
	Name          string            `json:"name"`
	Kind          int               `json:"kind,omitempty"`
	StartTime     string            `json:"startTime"`
	EndTime       string            `json:"endTime"`
	Duration      string            `json:"duration"`
	Status        string            `json:"status"`
	StatusMessage string            `json:"statusMessage,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Events        []eventOutput     `json:"events,omitempty"`
}

type eventOutput struct {
	Name       string            `json:"name"`
	Timestamp  string            `json:"timestamp"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func spanToOutput(span *Span) spanOutput {
	output := spanOutput{
		TraceID:       span.TraceID,
		SpanID:        span.SpanID,
		ParentID:      span.ParentID,
		Name:          span.Name,
		Kind:          int(span.Kind),
		StartTime:     span.StartTime.Format(time.RFC3339Nano),
		EndTime:       span.EndTime.Format(time.RFC3339Nano),
		Duration:      span.EndTime.Sub(span.StartTime).String(),
		Status:        span.Status.String(),
		StatusMessage: span.StatusMessage,
		Attributes:    span.Attributes,
	}

	if len(span.Events) > 0 {
		output.Events = make([]eventOutput, len(span.Events))
		for i, e := range span.Events {
			output.Events[i] = eventOutput{
				Name:       e.Name,
				Timestamp:  e.Timestamp.Format(time.RFC3339Nano),
				Attributes: e.Attrs,
			}
		}
	}

	return output
}

// ============================================================================
// OTLPExporter - sends spans to an OTLP/HTTP endpoint
// ============================================================================

var errExporterShutdown = errors.New("tracing: exporter is shut down")

// OTLPExporter exports spans to an OTLP/HTTP endpoint using the JSON
// encoding, e.g. http://collector:4318/v1/traces.
type OTLPExporter struct {
	endpoint   string
	client     *http.Client
	headers    map[string]string
	retryCount int

	mu       sync.Mutex
	shutdown bool
}

// OTLPOption configures an OTLPExporter.
type OTLPOption func(*OTLPExporter)

// WithOTLPHeaders sets extra headers on export requests, e.g. collector
// auth tokens.
func WithOTLPHeaders(headers map[string]string) OTLPOption {
	return func(e *OTLPExporter) { e.headers = headers }
}

// WithOTLPClient sets a custom HTTP client.
func WithOTLPClient(client *http.Client) OTLPOption {
	return func(e *OTLPExporter) { e.client = client }
}

// WithOTLPRetryCount sets how many times a failed export is retried.
func WithOTLPRetryCount(count int) OTLPOption {
	return func(e *OTLPExporter) { e.retryCount = count }
}

// NewOTLPExporter creates an OTLP/HTTP exporter.
func NewOTLPExporter(endpoint string, opts ...OTLPOption) *OTLPExporter {
	e := &OTLPExporter{
		endpoint:   endpoint,
		client:     &http.Client{Timeout: 30 * time.Second},
		headers:    make(map[string]string),
		retryCount: 3,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export sends the spans, retrying with exponential backoff.
func (e *OTLPExporter) Export(spans []*Span) error {
	e.mu.Lock()
	down := e.shutdown
	e.mu.Unlock()
	if down {
		return errExporterShutdown
	}

	if len(spans) == 0 {
		return nil
	}

	payload := convertToOTLP(spans)
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("tracing: marshal OTLP payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.retryCount; attempt++ {
		if attempt > 0 {
			time.Sleep(time.Duration(1<<(attempt-1)) * 100 * time.Millisecond)
		}
		if lastErr = e.send(data); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (e *OTLPExporter) send(data []byte) error {
	req, err := http.NewRequest(http.MethodPost, e.endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("tracing: create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range e.headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("tracing: send spans: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("tracing: OTLP export failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

// Shutdown marks the exporter shut down; later Export calls fail.
func (e *OTLPExporter) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.shutdown = true
	return nil
}

// ============================================================================
// OTLP JSON protocol structures
// ============================================================================

type otlpTraceRequest struct {
	ResourceSpans []otlpResourceSpans `json:"resourceSpans"`
}

type otlpResourceSpans struct {
	Resource   otlpResource    `json:"resource"`
	ScopeSpans []otlpScopeSpan `json:"scopeSpans"`
}

type otlpResource struct {
	Attributes []otlpKeyValue `json:"attributes"`
}

type otlpScopeSpan struct {
	Scope otlpScope  `json:"scope"`
	Spans []otlpSpan `json:"spans"`
}

type otlpScope struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type otlpSpan struct {
	TraceID           string         `json:"traceId"`
	SpanID            string         `json:"spanId"`
	ParentSpanID      string         `json:"parentSpanId,omitempty"`
	Name              string         `json:"name"`
	Kind              int            `json:"kind"`
	StartTimeUnixNano string         `json:"startTimeUnixNano"`
	EndTimeUnixNano   string         `json:"endTimeUnixNano"`
	Attributes        []otlpKeyValue `json:"attributes,omitempty"`
	Events            []otlpEvent    `json:"events,omitempty"`
	Status            otlpStatus     `json:"status"`
}

type otlpKeyValue struct {
	Key   string    `json:"key"`
	Value otlpValue `json:"value"`
}

type otlpValue struct {
	StringValue string `json:"stringValue,omitempty"`
}

type otlpEvent struct {
	TimeUnixNano string         `json:"timeUnixNano"`
	Name         string         `json:"name"`
	Attributes   []otlpKeyValue `json:"attributes,omitempty"`
}

type otlpStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// convertToOTLP groups spans by service name into OTLP resource spans.
func convertToOTLP(spans []*Span) otlpTraceRequest {
	serviceSpans := make(map[string][]*Span)
	for _, span := range spans {
		svc := span.Attributes["service.name"]
		if svc == "" {
			svc = "unknown"
		}
		serviceSpans[svc] = append(serviceSpans[svc], span)
	}

	var resourceSpans []otlpResourceSpans
	for serviceName, group := range serviceSpans {
		otlpSpans := make([]otlpSpan, 0, len(group))
		for _, span := range group {
			otlpSpans = append(otlpSpans, convertSpan(span))
		}

		resourceSpans = append(resourceSpans, otlpResourceSpans{
			Resource: otlpResource{
				Attributes: []otlpKeyValue{
					{Key: "service.name", Value: otlpValue{StringValue: serviceName}},
				},
			},
			ScopeSpans: []otlpScopeSpan{
				{
					Scope: otlpScope{Name: "credd/tracing"},
					Spans: otlpSpans,
				},
			},
		})
	}

	return otlpTraceRequest{ResourceSpans: resourceSpans}
}

func convertSpan(span *Span) otlpSpan {
	// service.name lives on the resource, not the span
	var attrs []otlpKeyValue
	for k, v := range span.Attributes {
		if k != "service.name" {
			attrs = append(attrs, otlpKeyValue{Key: k, Value: otlpValue{StringValue: v}})
		}
	}

	var events []otlpEvent
	for _, e := range span.Events {
		var eventAttrs []otlpKeyValue
		for k, v := range e.Attrs {
			eventAttrs = append(eventAttrs, otlpKeyValue{Key: k, Value: otlpValue{StringValue: v}})
		}
		events = append(events, otlpEvent{
			TimeUnixNano: strconv.FormatInt(e.Timestamp.UnixNano(), 10),
			Name:         e.Name,
			Attributes:   eventAttrs,
		})
	}

	statusCode := 0 // UNSET
	switch span.Status {
	case StatusOK:
		statusCode = 1
	case StatusError:
		statusCode = 2
	}

	return otlpSpan{
		TraceID:           span.TraceID,
		SpanID:            span.SpanID,
		ParentSpanID:      span.ParentID,
		Name:              span.Name,
		Kind:              int(span.Kind),
		StartTimeUnixNano: strconv.FormatInt(span.StartTime.UnixNano(), 10),
		EndTimeUnixNano:   strconv.FormatInt(span.EndTime.UnixNano(), 10),
		Attributes:        attrs,
		Events:            events,
		Status: otlpStatus{
			Code:    statusCode,
			Message: span.StatusMessage,
		},
	}
}

// ============================================================================
// NoopExporter - discards everything
// ============================================================================

// NoopExporter discards all spans.
type NoopExporter struct{}

// NewNoopExporter creates a noop exporter.
func NewNoopExporter() *NoopExporter { return &NoopExporter{} }

// Export discards the spans.
func (*NoopExporter) Export([]*Span) error { return nil }

// Shutdown is a no-op.
func (*NoopExporter) Shutdown(context.Context) error { return nil }
