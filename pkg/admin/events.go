// Server-sent event stream of pool state.

package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/creddhq/credd/internal/id"
	"github.com/creddhq/credd/pkg/metrics"
	"github.com/creddhq/credd/pkg/pool"
	"github.com/creddhq/credd/pkg/sse"
)

// Event stream timing.
const (
	eventPollInterval = 2 * time.Second
	eventHeartbeat    = 15 * time.Second
	eventBufferSize   = 8
)

// eventHub polls the pool and fans snapshot changes out to stream
// subscribers. Mutating handlers kick it, so changes made through this
// API show up without waiting out the poll interval; changes made behind
// its back (daemon-side rotation) surface within one interval.
type eventHub struct {
	pool   pool.Manager
	logger *slog.Logger
	kickCh chan struct{}

	mu       sync.Mutex
	subs     map[chan sse.Event]struct{}
	lastID   string
	lastData []byte
}

func newEventHub(mgr pool.Manager, logger *slog.Logger) *eventHub {
	return &eventHub{
		pool:   mgr,
		logger: logger,
		kickCh: make(chan struct{}, 1),
		subs:   make(map[chan sse.Event]struct{}),
	}
}

// run polls until ctx ends.
func (h *eventHub) run(ctx context.Context) {
	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	h.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.poll(ctx)
		case <-h.kickCh:
			h.poll(ctx)
		}
	}
}

// Kick schedules an immediate poll. Non-blocking; a pending kick absorbs
// later ones.
func (h *eventHub) Kick() {
	select {
	case h.kickCh <- struct{}{}:
	default:
	}
}

// poll reads a snapshot and broadcasts it when it differs from the last
// delivered state. Comparison happens on the marshaled bytes, which are
// needed for delivery anyway.
func (h *eventHub) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, eventPollInterval)
	defer cancel()

	snap, err := h.pool.Snapshot(ctx)
	if err != nil {
		h.logger.Debug("event poll failed", "error", err)
		return
	}
	recordPoolGauges(snap)

	data, err := json.Marshal(listResponse(snap))
	if err != nil {
		h.logger.Warn("event encode failed", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if bytes.Equal(data, h.lastData) {
		return
	}
	h.lastData = data
	h.lastID = id.ULID()

	ev := sse.Event{ID: h.lastID, Name: "snapshot", Data: data}
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			// Slow subscriber; the next state event supersedes this one.
		}
	}
}

// subscribe registers a stream client. The current state is replayed
// immediately unless the client's Last-Event-ID shows it already has it.
// The returned cancel is idempotent.
func (h *eventHub) subscribe(lastEventID string) (<-chan sse.Event, func()) {
	ch := make(chan sse.Event, eventBufferSize)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	if h.lastData != nil && lastEventID != h.lastID {
		ch <- sse.Event{ID: h.lastID, Name: "snapshot", Data: h.lastData}
	}
	n := len(h.subs)
	h.mu.Unlock()

	setSubscriberGauge(n)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			remaining := len(h.subs)
			h.mu.Unlock()
			setSubscriberGauge(remaining)
		})
	}
	return ch, cancel
}

func setSubscriberGauge(n int) {
	if metrics.EventSubscribers != nil {
		_ = metrics.EventSubscribers.Set(float64(n))
	}
}

// handleEvents handles GET /api/events: a server-sent event stream that
// emits the credential listing as "snapshot" events whenever pool state
// changes.
func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "Streaming not supported")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Tell the client it is attached before any state flows.
	hello := sse.Event{Name: "connected", Data: []byte(`{"status":"connected"}`)}
	if _, err := hello.WriteTo(w); err != nil {
		return
	}
	flusher.Flush()

	ch, cancel := a.events.subscribe(r.Header.Get("Last-Event-ID"))
	defer cancel()

	heartbeat := time.NewTicker(eventHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if _, err := ev.WriteTo(w); err != nil {
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			// Comment line; keeps intermediaries from idling the socket.
			if _, err := sse.WriteComment(w, "hb"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
