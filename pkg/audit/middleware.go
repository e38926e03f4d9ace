package audit

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const defaultBodyPreviewSize = 1024

type traceIDKey struct{}

// ContextWithTraceID returns a context carrying the audit trace ID.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

// TraceIDFromContext returns the trace ID stored by the middleware, or
// "" when the request did not pass through it.
func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey{}).(string)
	return traceID
}

// Middleware wraps an http.Handler and records request.received and
// response.sent entries for every request whose path is not skipped.
// The trace ID it generates is placed on the request context so that
// downstream Recorder events correlate with the HTTP entries.
type Middleware struct {
	handler  http.Handler
	logger   AuditLogger
	config   *Config
	redactor RedactorFunc
}

// NewMiddleware creates the audit middleware. A nil logger records
// nothing; a nil config uses defaults.
func NewMiddleware(handler http.Handler, logger AuditLogger, config *Config) *Middleware {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Middleware{
		handler:  handler,
		logger:   logger,
		config:   config,
		redactor: RegisteredRedactor(),
	}
}

// ServeHTTP implements http.Handler.
func (m *Middleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.config.Skips(r.URL.Path) {
		m.handler.ServeHTTP(w, r)
		return
	}

	start := time.Now()
	traceID := uuid.NewString()
	r = r.WithContext(ContextWithTraceID(r.Context(), traceID))

	maxPreview := m.config.MaxBodyPreviewSize
	if maxPreview <= 0 {
		maxPreview = defaultBodyPreviewSize
	}

	// Peek at the body without buffering all of it. The preview bytes
	// are stitched back in front of the remaining body so the handler
	// still sees the full stream.
	var bodyPreview string
	if r.Body != nil && r.ContentLength != 0 {
		preview := make([]byte, maxPreview)
		n, _ := io.ReadFull(r.Body, preview)
		if n > 0 {
			bodyPreview = string(preview[:n])
			r.Body = io.NopCloser(io.MultiReader(
				bytes.NewReader(preview[:n]),
				r.Body,
			))
		}
	}

	requestInfo := &RequestInfo{
		Method:      r.Method,
		Path:        r.URL.Path,
		Query:       r.URL.RawQuery,
		BodySize:    r.ContentLength,
		BodyPreview: bodyPreview,
		ContentType: r.Header.Get("Content-Type"),
	}
	if m.config.IncludeHeaders {
		requestInfo.Headers = r.Header.Clone()
	}

	clientInfo := &ClientInfo{
		RemoteAddr: r.RemoteAddr,
		UserAgent:  r.Header.Get("User-Agent"),
	}
	if r.TLS != nil {
		clientInfo.TLS = true
		clientInfo.TLSVersion = tls.VersionName(r.TLS.Version)
	}

	logHTTP := levelEnabled(m.config, LevelInfo)

	if logHTTP {
		m.log(NewAuditEntry(EventRequestReceived, traceID).
			WithRequest(requestInfo).
			WithClient(clientInfo))
	}

	capture := &responseCapture{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
		body:           &bytes.Buffer{},
		maxCaptureSize: maxPreview,
	}

	m.handler.ServeHTTP(capture, r)

	if !logHTTP {
		return
	}

	duration := time.Since(start)

	responseInfo := &ResponseInfo{
		StatusCode:  capture.statusCode,
		BodySize:    int64(capture.size),
		ContentType: capture.Header().Get("Content-Type"),
		DurationMs:  duration.Milliseconds(),
	}
	if capture.body.Len() > 0 {
		responseInfo.BodyPreview = capture.body.String()
	}
	if m.config.IncludeHeaders {
		responseInfo.Headers = capture.Header().Clone()
	}

	m.log(NewAuditEntry(EventResponseSent, traceID).
		WithRequest(requestInfo).
		WithResponse(responseInfo).
		WithClient(clientInfo).
		WithMetadata(&EntryMetadata{Duration: duration.Nanoseconds()}))
}

// log redacts and writes one entry. Logging failures never fail the
// request.
func (m *Middleware) log(entry *AuditEntry) {
	if m.redactor != nil {
		entry = m.redactor(entry)
	}
	_ = m.logger.Log(*entry)
}

// responseCapture records the status code and a bounded prefix of the
// response body while passing everything through to the client.
type responseCapture struct {
	http.ResponseWriter
	statusCode     int
	body           *bytes.Buffer
	size           int
	maxCaptureSize int
}

func (rc *responseCapture) WriteHeader(code int) {
	rc.statusCode = code
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if remaining := rc.maxCaptureSize - rc.body.Len(); remaining > 0 {
		if len(b) <= remaining {
			rc.body.Write(b)
		} else {
			rc.body.Write(b[:remaining])
		}
	}
	rc.size += len(b)
	return rc.ResponseWriter.Write(b)
}

// Flush forwards to the wrapped writer so event streams keep working
// under the middleware.
func (rc *responseCapture) Flush() {
	if f, ok := rc.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
