package server

import (
	"fmt"
	"testing"
	"time"
)

func receive(t *testing.T, c *sseClient) sseEvent {
	t.Helper()
	select {
	case evt := <-c.ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return sseEvent{}
	}
}

func expectNone(t *testing.T, c *sseClient) {
	t.Helper()
	select {
	case evt := <-c.ch:
		t.Fatalf("unexpected event: topic=%q", evt.Topic)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEHub_BroadcastAndReceive(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	hub.broadcast("graphview.graph.loaded", []byte(`{"reason":"api"}`))

	evt := receive(t, client)
	if evt.Topic != "graphview.graph.loaded" || string(evt.Data) != `{"reason":"api"}` || evt.ID != 1 {
		t.Fatalf("unexpected event: %+v", evt)
	}
}

func TestSSEHub_TopicFiltering(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe([]string{"graphview.graph.changed"})
	defer hub.unsubscribe(client)

	hub.broadcast("graphview.graph.loaded", []byte(`{}`))
	hub.broadcast("graphview.graph.changed", []byte(`{}`))

	if evt := receive(t, client); evt.Topic != "graphview.graph.changed" {
		t.Fatalf("expected changed event, got %q", evt.Topic)
	}
	expectNone(t, client)
}

func TestSSEHub_Unsubscribe(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe(nil)
	hub.unsubscribe(client)

	hub.broadcast("graphview.graph.loaded", []byte(`{}`))
	expectNone(t, client)
}

func TestSSEHub_SlowClientDoesNotBlock(t *testing.T) {
	hub := newSSEHub()
	client := hub.subscribe(nil)
	defer hub.unsubscribe(client)

	done := make(chan struct{})
	go func() {
		for range sseClientBuffer * 3 {
			hub.broadcast("graphview.graph.loaded", []byte(`{}`))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full client")
	}
	if len(client.ch) != sseClientBuffer {
		t.Fatalf("expected a full client buffer, got %d", len(client.ch))
	}
}

func TestSSEHub_Since(t *testing.T) {
	hub := newSSEHub()
	if evts := hub.since(0); len(evts) != 0 {
		t.Fatalf("expected no events, got %d", len(evts))
	}

	for i := range 5 {
		hub.broadcast("graphview.graph.loaded", []byte(fmt.Sprintf(`{"n":%d}`, i)))
	}
	evts := hub.since(2)
	if len(evts) != 3 || evts[0].ID != 3 || evts[2].ID != 5 {
		t.Fatalf("expected ids 3..5, got %+v", evts)
	}
}

func TestSSEHub_ReplayWindow(t *testing.T) {
	hub := newSSEHub()
	for range sseReplaySize + 10 {
		hub.broadcast("graphview.graph.loaded", []byte(`{}`))
	}
	evts := hub.since(0)
	if len(evts) != sseReplaySize {
		t.Fatalf("expected %d retained events, got %d", sseReplaySize, len(evts))
	}
	if evts[0].ID != 11 {
		t.Fatalf("expected oldest retained id 11, got %d", evts[0].ID)
	}
}

func TestMatchTopicPattern(t *testing.T) {
	for _, tc := range []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"graphview.graph.loaded", "graphview.graph.loaded", true},
		{"graphview.graph.loaded", "graphview.graph.changed", false},
		{"graphview.graph.*", "graphview.graph.changed", true},
		{"graphview.*", "graphview.graph.changed", false},
		{"graphview.>", "graphview.graph.loaded", true},
		{"graphview.>", "graphview", false},
		{"other.>", "graphview.graph.loaded", false},
		{"*.*.*", "graphview.graph.loaded", true},
		{"*.*.*", "graphview.graph", false},
	} {
		t.Run(tc.pattern+"_"+tc.topic, func(t *testing.T) {
			if got := matchTopicPattern(tc.pattern, tc.topic); got != tc.want {
				t.Fatalf("matchTopicPattern(%q, %q) = %v, want %v", tc.pattern, tc.topic, got, tc.want)
			}
		})
	}
}
