package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// LokiHandler is a slog.Handler that batches logs and pushes them to Loki.
type LokiHandler struct {
	url           string
	labels        map[string]string
	client        *http.Client
	level         slog.Level
	attrs         []slog.Attr
	groups        []string
	batchSize     int
	flushInterval time.Duration

	mu         sync.Mutex
	batch      []lokiEntry
	flushTimer *time.Timer
}

type lokiEntry struct {
	timestamp time.Time
	line      string
}

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][]string        `json:"values"`
}

type lokiPush struct {
	Streams []lokiStream `json:"streams"`
}

// LokiOption configures a LokiHandler.
type LokiOption func(*LokiHandler)

// WithLokiLabels sets additional stream labels.
func WithLokiLabels(labels map[string]string) LokiOption {
	return func(h *LokiHandler) {
		for k, v := range labels {
			h.labels[k] = v
		}
	}
}

// WithLokiLevel sets the minimum log level.
func WithLokiLevel(level slog.Level) LokiOption {
	return func(h *LokiHandler) {
		h.level = level
	}
}

// WithLokiBatchSize sets the number of entries buffered before a flush.
func WithLokiBatchSize(size int) LokiOption {
	return func(h *LokiHandler) {
		h.batchSize = size
	}
}

// WithLokiFlushInterval sets the background flush interval.
func WithLokiFlushInterval(d time.Duration) LokiOption {
	return func(h *LokiHandler) {
		h.flushInterval = d
	}
}

// NewLokiHandler creates a new Loki log handler.
// The url should be the Loki push endpoint (e.g., "http://localhost:3100/loki/api/v1/push").
func NewLokiHandler(url string, opts ...LokiOption) *LokiHandler {
	h := &LokiHandler{
		url:           url,
		labels:        map[string]string{"job": "credd"},
		client:        &http.Client{Timeout: 5 * time.Second},
		level:         slog.LevelInfo,
		batchSize:     100,
		flushInterval: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(h)
	}

	h.flushTimer = time.AfterFunc(h.flushInterval, func() {
		_ = h.Flush()
		h.mu.Lock()
		if h.flushTimer != nil {
			h.flushTimer.Reset(h.flushInterval)
		}
		h.mu.Unlock()
	})

	return h
}

// Enabled implements slog.Handler.
func (h *LokiHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

// Handle implements slog.Handler.
func (h *LokiHandler) Handle(_ context.Context, r slog.Record) error {
	line := h.formatRecord(r)

	h.mu.Lock()
	h.batch = append(h.batch, lokiEntry{timestamp: r.Time, line: line})
	shouldFlush := len(h.batch) >= h.batchSize
	h.mu.Unlock()

	if shouldFlush {
		go func() { _ = h.Flush() }()
	}

	return nil
}

func (h *LokiHandler) formatRecord(r slog.Record) string {
	data := map[string]interface{}{
		"level": r.Level.String(),
		"msg":   r.Message,
		"time":  r.Time.Format(time.RFC3339Nano),
	}

	for _, attr := range h.attrs {
		data[attr.Key] = attr.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})

	b, _ := json.Marshal(data)
	return string(b)
}

// clone copies the handler without its buffered batch; derived handlers
// share the stream labels and HTTP client but buffer independently.
func (h *LokiHandler) clone() *LokiHandler {
	return &LokiHandler{
		url:           h.url,
		labels:        h.labels,
		client:        h.client,
		level:         h.level,
		attrs:         h.attrs,
		groups:        h.groups,
		batchSize:     h.batchSize,
		flushInterval: h.flushInterval,
	}
}

// WithAttrs implements slog.Handler.
func (h *LokiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := h.clone()
	nh.attrs = append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...)
	return nh
}

// WithGroup implements slog.Handler.
func (h *LokiHandler) WithGroup(name string) slog.Handler {
	nh := h.clone()
	nh.groups = append(h.groups[:len(h.groups):len(h.groups)], name)
	return nh
}

// Flush sends all buffered logs to Loki.
func (h *LokiHandler) Flush() error {
	h.mu.Lock()
	if len(h.batch) == 0 {
		h.mu.Unlock()
		return nil
	}
	batch := h.batch
	h.batch = nil
	h.mu.Unlock()

	values := make([][]string, len(batch))
	for i, entry := range batch {
		values[i] = []string{
			strconv.FormatInt(entry.timestamp.UnixNano(), 10),
			entry.line,
		}
	}

	push := lokiPush{
		Streams: []lokiStream{{Stream: h.labels, Values: values}},
	}

	body, err := json.Marshal(push)
	if err != nil {
		return fmt.Errorf("failed to marshal loki push: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create loki request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send logs to loki: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("loki returned status %d", resp.StatusCode)
	}

	return nil
}

// Close flushes remaining logs and stops the background timer.
func (h *LokiHandler) Close() error {
	h.mu.Lock()
	if h.flushTimer != nil {
		h.flushTimer.Stop()
		h.flushTimer = nil
	}
	h.mu.Unlock()
	return h.Flush()
}
