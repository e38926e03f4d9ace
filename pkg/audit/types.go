package audit

import (
	"net/http"
	"time"
)

// Event names recorded in audit entries.
const (
	EventRequestReceived    = "request.received"
	EventResponseSent       = "response.sent"
	EventCredentialDisabled = "credential.disabled"
	EventCredentialEnabled  = "credential.enabled"
	EventPriorityChanged    = "credential.priority_changed"
	EventCredentialReset    = "credential.reset"
	EventBalanceChecked     = "credential.balance_checked"
	EventPoolRotated        = "pool.rotated"
	EventError              = "error"
)

// AuditEntry is a single audit record. Entries are written as JSON
// lines, one event per line.
type AuditEntry struct {
	// Sequence orders entries within a single logger's output.
	Sequence int64 `json:"sequence"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// TraceID correlates every entry produced while handling one admin
	// request, from request.received through response.sent.
	TraceID string `json:"traceId"`

	// Event is the event name, e.g. "credential.disabled".
	Event string `json:"event"`

	// Request describes the incoming HTTP request.
	Request *RequestInfo `json:"request,omitempty"`

	// Response describes the outgoing HTTP response.
	Response *ResponseInfo `json:"response,omitempty"`

	// Credential identifies the pool credential an operation acted on.
	Credential *CredentialInfo `json:"credential,omitempty"`

	// Rotation is set on pool.rotated events.
	Rotation *RotationInfo `json:"rotation,omitempty"`

	// Client describes the caller.
	Client *ClientInfo `json:"client,omitempty"`

	// Metadata carries additional context.
	Metadata *EntryMetadata `json:"metadata,omitempty"`
}

// RequestInfo captures details about an incoming HTTP request.
type RequestInfo struct {
	// Method is the HTTP method.
	Method string `json:"method"`

	// Path is the request URL path.
	Path string `json:"path"`

	// Query is the raw query string.
	Query string `json:"query,omitempty"`

	// Headers are the request headers, included when the config asks
	// for them. Authorization values pass through any registered
	// redactor before logging.
	Headers http.Header `json:"headers,omitempty"`

	// BodySize is the declared request body size in bytes.
	BodySize int64 `json:"bodySize,omitempty"`

	// BodyPreview is a truncated preview of the request body.
	BodyPreview string `json:"bodyPreview,omitempty"`

	// ContentType is the Content-Type header value.
	ContentType string `json:"contentType,omitempty"`
}

// ResponseInfo captures details about an outgoing HTTP response.
type ResponseInfo struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"statusCode"`

	// Headers are the response headers.
	Headers http.Header `json:"headers,omitempty"`

	// BodySize is the full response body size in bytes, regardless of
	// how much of it the preview captured.
	BodySize int64 `json:"bodySize,omitempty"`

	// BodyPreview is a truncated preview of the response body.
	BodyPreview string `json:"bodyPreview,omitempty"`

	// ContentType is the Content-Type header value.
	ContentType string `json:"contentType,omitempty"`

	// DurationMs is the handling time in milliseconds.
	DurationMs int64 `json:"durationMs,omitempty"`
}

// CredentialInfo identifies the pool credential affected by an operation.
type CredentialInfo struct {
	// Index is the credential's position in the pool.
	Index int `json:"index"`

	// Priority is the credential's priority after the operation, set on
	// credential.priority_changed events.
	Priority int `json:"priority,omitempty"`

	// Disabled reports the credential's disabled state after the operation.
	Disabled bool `json:"disabled,omitempty"`

	// AuthMethod is the credential's authentication method when known.
	AuthMethod string `json:"authMethod,omitempty"`
}

// RotationInfo records a change of the pool's current credential.
type RotationInfo struct {
	// PreviousIndex is the index that was current before the rotation.
	PreviousIndex int `json:"previousIndex"`

	// CurrentIndex is the index that is current after the rotation.
	CurrentIndex int `json:"currentIndex"`

	// Trigger is what caused the rotation: "manual" for explicit rotate
	// requests, "auto_disable" when the current credential was disabled.
	Trigger string `json:"trigger"`
}

// ClientInfo captures details about the caller.
type ClientInfo struct {
	// RemoteAddr is the caller's IP address and port.
	RemoteAddr string `json:"remoteAddr"`

	// UserAgent is the User-Agent header value.
	UserAgent string `json:"userAgent,omitempty"`

	// TLS indicates whether the connection used TLS.
	TLS bool `json:"tls,omitempty"`

	// TLSVersion is the negotiated protocol version, e.g. "TLS 1.3".
	TLSVersion string `json:"tlsVersion,omitempty"`
}

// EntryMetadata carries additional context for an audit entry.
type EntryMetadata struct {
	// ServerID identifies the admin server instance.
	ServerID string `json:"serverId,omitempty"`

	// Error holds error details when the event represents a failure.
	Error *ErrorInfo `json:"error,omitempty"`

	// Tags are arbitrary key-value pairs.
	Tags map[string]string `json:"tags,omitempty"`

	// Duration is the total handling time in nanoseconds.
	Duration int64 `json:"duration,omitempty"`
}

// ErrorInfo describes a failure recorded in an audit entry.
type ErrorInfo struct {
	// Code is a machine-readable error code.
	Code string `json:"code,omitempty"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// Details carries additional error context.
	Details map[string]any `json:"details,omitempty"`
}

// NewAuditEntry creates an AuditEntry stamped with the current time.
func NewAuditEntry(event string, traceID string) *AuditEntry {
	return &AuditEntry{
		Timestamp: time.Now(),
		TraceID:   traceID,
		Event:     event,
	}
}

// WithRequest attaches request information.
func (e *AuditEntry) WithRequest(req *RequestInfo) *AuditEntry {
	e.Request = req
	return e
}

// WithResponse attaches response information.
func (e *AuditEntry) WithResponse(resp *ResponseInfo) *AuditEntry {
	e.Response = resp
	return e
}

// WithCredential attaches credential information.
func (e *AuditEntry) WithCredential(cred *CredentialInfo) *AuditEntry {
	e.Credential = cred
	return e
}

// WithRotation attaches rotation information.
func (e *AuditEntry) WithRotation(rot *RotationInfo) *AuditEntry {
	e.Rotation = rot
	return e
}

// WithClient attaches client information.
func (e *AuditEntry) WithClient(client *ClientInfo) *AuditEntry {
	e.Client = client
	return e
}

// WithMetadata attaches metadata.
func (e *AuditEntry) WithMetadata(meta *EntryMetadata) *AuditEntry {
	e.Metadata = meta
	return e
}

// WithError attaches error details, allocating metadata when needed.
func (e *AuditEntry) WithError(code, message string) *AuditEntry {
	if e.Metadata == nil {
		e.Metadata = &EntryMetadata{}
	}
	e.Metadata.Error = &ErrorInfo{Code: code, Message: message}
	return e
}
