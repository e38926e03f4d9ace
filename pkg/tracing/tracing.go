package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"sync"
	"time"
)

// SpanStatus represents the outcome of a span.
type SpanStatus int

const (
	// StatusUnset is the default status.
	StatusUnset SpanStatus = iota
	// StatusOK indicates the operation completed successfully.
	StatusOK
	// StatusError indicates the operation failed.
	StatusError
)

// String returns the string representation of the status.
func (s SpanStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusError:
		return "ERROR"
	default:
		return "UNSET"
	}
}

// SpanKind describes the span's relationship to its trace. The values
// match the OTLP span kind enumeration.
type SpanKind int

const (
	SpanKindUnspecified SpanKind = 0
	SpanKindInternal    SpanKind = 1
	SpanKindServer      SpanKind = 2
	SpanKindClient      SpanKind = 3
	SpanKindProducer    SpanKind = 4
	SpanKindConsumer    SpanKind = 5
)

// SpanEvent is a timestamped annotation on a span.
type SpanEvent struct {
	Name      string            `json:"name"`
	Timestamp time.Time         `json:"timestamp"`
	Attrs     map[string]string `json:"attributes,omitempty"`
}

// Span represents a single operation within a trace, such as handling
// one admin request or one call to the pool daemon.
type Span struct {
	TraceID       string            `json:"traceId"`
	SpanID        string            `json:"spanId"`
	ParentID      string            `json:"parentId,omitempty"`
	Name          string            `json:"name"`
	Kind          SpanKind          `json:"kind,omitempty"`
	StartTime     time.Time         `json:"startTime"`
	EndTime       time.Time         `json:"endTime,omitempty"`
	Status        SpanStatus        `json:"status"`
	StatusMessage string            `json:"statusMessage,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Events        []SpanEvent       `json:"events,omitempty"`

	mu     sync.Mutex
	tracer *Tracer
	ended  bool
}

// End marks the span as ended and hands it to the exporter. Calling End
// more than once is a no-op.
func (s *Span) End() {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.EndTime = time.Now()
	s.mu.Unlock()

	if s.tracer != nil {
		s.tracer.exportSpan(s)
	}
}

// SetAttribute sets a key-value attribute on the span.
func (s *Span) SetAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	if s.Attributes == nil {
		s.Attributes = make(map[string]string)
	}
	s.Attributes[key] = value
}

// AddEvent adds a timestamped event. attrs are alternating key-value
// pairs; a trailing key without a value is dropped.
func (s *Span) AddEvent(name string, attrs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}

	event := SpanEvent{
		Name:      name,
		Timestamp: time.Now(),
	}
	if len(attrs) > 1 {
		event.Attrs = make(map[string]string, len(attrs)/2)
		for i := 0; i+1 < len(attrs); i += 2 {
			event.Attrs[attrs[i]] = attrs[i+1]
		}
	}

	s.Events = append(s.Events, event)
}

// SetStatus sets the status of the span.
func (s *Span) SetStatus(status SpanStatus, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.Status = status
	s.StatusMessage = message
}

// RecordError marks the span failed with the error's message. A nil
// error is ignored.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.SetStatus(StatusError, err.Error())
}

// IsRecording reports whether the span is still collecting data.
func (s *Span) IsRecording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.ended
}

// SpanContext returns the values needed to propagate this span across a
// process boundary.
func (s *Span) SpanContext() SpanContext {
	return SpanContext{
		TraceID:  s.TraceID,
		SpanID:   s.SpanID,
		ParentID: s.ParentID,
		Sampled:  true,
	}
}

// SpanContext holds the trace context for propagation.
type SpanContext struct {
	TraceID  string
	SpanID   string
	ParentID string
	Sampled  bool
}

// IsValid reports whether the span context has trace and span IDs.
func (sc SpanContext) IsValid() bool {
	return sc.TraceID != "" && sc.SpanID != ""
}

// Sampler decides whether a trace should be recorded.
type Sampler interface {
	ShouldSample(traceID string) bool
}

// AlwaysSample records every trace.
type AlwaysSample struct{}

func (AlwaysSample) ShouldSample(string) bool { return true }

// NeverSample records nothing.
type NeverSample struct{}

func (NeverSample) ShouldSample(string) bool { return false }

// RatioSampler records a fixed fraction of traces, decided
// deterministically from the trace ID so every span of a trace gets the
// same answer.
type RatioSampler struct {
	ratio float64
}

// NewRatioSampler creates a sampler recording the given fraction of
// traces. The ratio is clamped to [0, 1].
func NewRatioSampler(ratio float64) *RatioSampler {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	return &RatioSampler{ratio: ratio}
}

// ShouldSample hashes the first 8 bytes of the trace ID against the
// ratio threshold. Malformed trace IDs are sampled.
func (s *RatioSampler) ShouldSample(traceID string) bool {
	if s.ratio >= 1 {
		return true
	}
	if s.ratio <= 0 {
		return false
	}
	if len(traceID) < 16 {
		return true
	}
	val, err := strconv.ParseUint(traceID[:16], 16, 64)
	if err != nil {
		return true
	}
	threshold := uint64(s.ratio * float64(^uint64(0)))
	return val < threshold
}

// Tracer creates spans and batches them for export.
type Tracer struct {
	serviceName string
	exporter    Exporter
	sampler     Sampler
	batchSize   int

	mu    sync.Mutex
	spans []*Span
	wg    sync.WaitGroup // in-flight exports
}

// TracerOption configures a Tracer.
type TracerOption func(*Tracer)

// WithExporter sets the exporter spans are delivered to. Without one
// the tracer records spans but exports nothing.
func WithExporter(e Exporter) TracerOption {
	return func(t *Tracer) { t.exporter = e }
}

// WithSampler sets the sampling policy. Default: AlwaysSample.
func WithSampler(s Sampler) TracerOption {
	return func(t *Tracer) { t.sampler = s }
}

// WithBatchSize sets how many ended spans accumulate before a
// background export. Default: 100.
func WithBatchSize(size int) TracerOption {
	return func(t *Tracer) {
		if size > 0 {
			t.batchSize = size
		}
	}
}

// NewTracer creates a Tracer. serviceName appears as the service.name
// attribute on every span; the admin server uses "credd-admin".
func NewTracer(serviceName string, opts ...TracerOption) *Tracer {
	t := &Tracer{
		serviceName: serviceName,
		sampler:     AlwaysSample{},
		batchSize:   100,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartOption configures a span at creation time.
type StartOption func(*Span)

// WithKind sets the span kind.
func WithKind(kind SpanKind) StartOption {
	return func(s *Span) { s.Kind = kind }
}

// WithAttributes sets initial attributes on the span.
func WithAttributes(attrs map[string]string) StartOption {
	return func(s *Span) {
		for k, v := range attrs {
			s.Attributes[k] = v
		}
	}
}

// Start creates a span. If the context carries a span already, the new
// span becomes its child; a context populated by Extract continues the
// remote trace instead.
func (t *Tracer) Start(ctx context.Context, name string, opts ...StartOption) (context.Context, *Span) {
	var traceID, parentID string

	if parent := SpanFromContext(ctx); parent != nil {
		traceID = parent.TraceID
		parentID = parent.SpanID
	} else if sc := SpanContextFromContext(ctx); sc.IsValid() {
		traceID = sc.TraceID
		parentID = sc.SpanID
	}

	if traceID == "" {
		traceID = randomHex(16)
	}

	if !t.sampler.ShouldSample(traceID) {
		// Non-recording span: carries IDs for propagation but drops all
		// writes and is never exported.
		span := &Span{
			TraceID:   traceID,
			SpanID:    randomHex(8),
			ParentID:  parentID,
			Name:      name,
			StartTime: time.Now(),
			ended:     true,
		}
		return contextWithSpan(ctx, span), span
	}

	span := &Span{
		TraceID:    traceID,
		SpanID:     randomHex(8),
		ParentID:   parentID,
		Name:       name,
		StartTime:  time.Now(),
		Attributes: map[string]string{"service.name": t.serviceName},
		tracer:     t,
	}
	for _, opt := range opts {
		opt(span)
	}

	return contextWithSpan(ctx, span), span
}

// ServiceName returns the tracer's service name.
func (t *Tracer) ServiceName() string {
	return t.serviceName
}

// exportSpan buffers an ended span, kicking off a background export
// when the batch is full.
func (t *Tracer) exportSpan(span *Span) {
	if t.exporter == nil {
		return
	}

	t.mu.Lock()
	t.spans = append(t.spans, span)
	if len(t.spans) < t.batchSize {
		t.mu.Unlock()
		return
	}
	spans := t.spans
	t.spans = nil
	t.wg.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.wg.Done()
		_ = t.exporter.Export(spans)
	}()
}

// Flush exports buffered spans immediately, after waiting for in-flight
// exports to finish.
func (t *Tracer) Flush() error {
	t.wg.Wait()

	t.mu.Lock()
	spans := t.spans
	t.spans = nil
	t.mu.Unlock()

	if t.exporter != nil && len(spans) > 0 {
		return t.exporter.Export(spans)
	}
	return nil
}

// Shutdown flushes pending spans and shuts the exporter down.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if err := t.Flush(); err != nil {
		return err
	}
	if t.exporter != nil {
		return t.exporter.Shutdown(ctx)
	}
	return nil
}

// randomHex returns n random bytes hex-encoded.
func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

type spanContextKey struct{}
type spanContextValueKey struct{}

func contextWithSpan(ctx context.Context, span *Span) context.Context {
	return context.WithValue(ctx, spanContextKey{}, span)
}

// SpanFromContext returns the current span, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanContextKey{}).(*Span)
	return span
}

func contextWithSpanContext(ctx context.Context, sc SpanContext) context.Context {
	return context.WithValue(ctx, spanContextValueKey{}, sc)
}

// SpanContextFromContext returns the propagated span context stored by
// Extract, or a zero value.
func SpanContextFromContext(ctx context.Context) SpanContext {
	sc, _ := ctx.Value(spanContextValueKey{}).(SpanContext)
	return sc
}
