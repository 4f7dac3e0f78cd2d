package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// sseReplaySize is how many recent events are kept for Last-Event-ID replay.
	sseReplaySize = 256

	// sseKeepaliveInterval is how often a comment line is sent on idle streams.
	sseKeepaliveInterval = 15 * time.Second

	// sseClientBuffer is the per-client queue length; events beyond it are
	// dropped for that client.
	sseClientBuffer = 32
)

// sseEvent is a single event delivered to SSE clients.
type sseEvent struct {
	ID    uint64
	Topic string
	Data  []byte // JSON payload
}

// sseHub fans graph events out to connected SSE clients and keeps a short
// replay log for reconnecting clients.
type sseHub struct {
	mu      sync.Mutex
	clients map[*sseClient]struct{}
	lastID  uint64
	replay  []sseEvent // oldest first, at most sseReplaySize
}

// sseClient is one connected stream.
type sseClient struct {
	topics []string // NATS-style patterns; empty matches everything
	ch     chan sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{clients: make(map[*sseClient]struct{})}
}

// broadcast assigns the next id to the event, records it for replay and
// delivers it to matching clients without blocking on slow ones.
func (h *sseHub) broadcast(topic string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastID++
	evt := sseEvent{ID: h.lastID, Topic: topic, Data: payload}

	if len(h.replay) == sseReplaySize {
		copy(h.replay, h.replay[1:])
		h.replay = h.replay[:sseReplaySize-1]
	}
	h.replay = append(h.replay, evt)

	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

// subscribe registers a client. Call unsubscribe when the stream ends.
func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan sseEvent, sseClientBuffer)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns the retained events with an id greater than lastID, oldest first.
func (h *sseHub) since(lastID uint64) []sseEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []sseEvent
	for _, evt := range h.replay {
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

func (c *sseClient) wants(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, p := range c.topics {
		if matchTopicPattern(p, topic) {
			return true
		}
	}
	return false
}

// matchTopicPattern matches a dot-separated topic against a pattern where
// "*" matches one segment and a trailing ">" matches one or more.
func matchTopicPattern(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pat := strings.Split(pattern, ".")
	top := strings.Split(topic, ".")
	for i, seg := range pat {
		if seg == ">" {
			return i < len(top)
		}
		if i >= len(top) || (seg != "*" && seg != top[i]) {
			return false
		}
	}
	return len(pat) == len(top)
}

// handleEventStream handles GET /api/events/stream.
func (s *GraphServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var topics []string
	for _, t := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}

	client := s.sseHub.subscribe(topics)
	defer s.sseHub.unsubscribe(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, evt := range s.sseHub.since(lastID) {
			if client.wants(evt.Topic) {
				writeSSEEvent(w, evt)
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, evt sseEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
