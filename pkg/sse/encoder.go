// Package sse implements the server-sent events wire format per the
// W3C specification.
// See: https://html.spec.whatwg.org/multipage/server-sent-events.html
//
// The admin API streams pool state over SSE; this package owns the
// framing so handlers only deal in events.
package sse

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// Field prefixes in wire format.
const (
	fieldEvent = "event: "
	fieldID    = "id: "
	fieldData  = "data: "
)

var (
	// ErrInvalidName reports an event name containing line breaks.
	ErrInvalidName = errors.New("sse: event name must not contain line breaks")
	// ErrInvalidID reports an event ID containing line breaks.
	ErrInvalidID = errors.New("sse: event id must not contain line breaks")
	// ErrInvalidComment reports a comment containing line breaks.
	ErrInvalidComment = errors.New("sse: comment must not contain line breaks")
)

// Event is one outbound server-sent message.
type Event struct {
	// Name is the event type dispatched to listeners. Empty means the
	// default "message" event.
	Name string

	// ID becomes the stream's Last-Event-ID when set, letting clients
	// resume after a reconnect.
	ID string

	// Data is the payload. Line breaks split it across data fields; the
	// client joins them back with newlines.
	Data []byte
}

// WriteTo writes the event in wire format, ending with the blank line
// that dispatches the message. It implements io.WriterTo.
func (e *Event) WriteTo(w io.Writer) (int64, error) {
	var sb strings.Builder

	if e.Name != "" {
		if strings.ContainsAny(e.Name, "\r\n") {
			return 0, ErrInvalidName
		}
		sb.WriteString(fieldEvent)
		sb.WriteString(e.Name)
		sb.WriteByte('\n')
	}

	if e.ID != "" {
		if strings.ContainsAny(e.ID, "\r\n") {
			return 0, ErrInvalidID
		}
		sb.WriteString(fieldID)
		sb.WriteString(e.ID)
		sb.WriteByte('\n')
	}

	if len(e.Data) > 0 {
		for _, line := range bytes.Split(e.Data, []byte("\n")) {
			sb.WriteString(fieldData)
			sb.Write(line)
			sb.WriteByte('\n')
		}
	}

	sb.WriteByte('\n')

	n, err := io.WriteString(w, sb.String())
	return int64(n), err
}

// WriteComment writes a comment line followed by the message
// terminator. Comments are invisible to EventSource clients; streams
// use them as keepalives.
func WriteComment(w io.Writer, text string) (int, error) {
	if strings.ContainsAny(text, "\r\n") {
		return 0, ErrInvalidComment
	}
	return io.WriteString(w, ": "+text+"\n\n")
}
