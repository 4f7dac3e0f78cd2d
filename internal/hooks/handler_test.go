package hooks

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/alfredjeanlab/graphview/internal/events"
	"github.com/alfredjeanlab/graphview/internal/model"
)

// mockTarget records reloads and broadcasts.
type mockTarget struct {
	mu         sync.Mutex
	reasons    []string
	broadcasts []string
	reloadErr  error
	reloaded   chan struct{}
}

func newMockTarget() *mockTarget {
	return &mockTarget{reloaded: make(chan struct{}, 8)}
}

func (m *mockTarget) Reload(_ context.Context, reason string) (*model.GraphStats, error) {
	m.mu.Lock()
	m.reasons = append(m.reasons, reason)
	m.mu.Unlock()
	m.reloaded <- struct{}{}
	if m.reloadErr != nil {
		return nil, m.reloadErr
	}
	return &model.GraphStats{}, nil
}

func (m *mockTarget) Broadcast(topic string, _ any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcasts = append(m.broadcasts, topic)
}

// chanSubscriber delivers whatever is sent on ch.
type chanSubscriber struct {
	ch    chan []byte
	topic string
}

func (s *chanSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	s.topic = topic
	return s.ch, func() {}, nil
}

func (s *chanSubscriber) Close() error { return nil }

type failingSubscriber struct{}

func (failingSubscriber) Subscribe(string) (<-chan []byte, func(), error) {
	return nil, nil, errors.New("not connected")
}

func (failingSubscriber) Close() error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func TestHandleGraphChanged(t *testing.T) {
	target := newMockTarget()
	h := NewHandler(target, testLogger())

	if err := h.HandleGraphChanged(context.Background(), events.GraphChanged{Source: "seed"}); err != nil {
		t.Fatalf("HandleGraphChanged: %v", err)
	}
	if len(target.broadcasts) != 1 || target.broadcasts[0] != events.TopicGraphChanged {
		t.Errorf("broadcasts = %v", target.broadcasts)
	}
	if len(target.reasons) != 1 || target.reasons[0] != "event" {
		t.Errorf("reload reasons = %v", target.reasons)
	}
}

func TestHandleGraphChanged_ReloadError(t *testing.T) {
	target := newMockTarget()
	target.reloadErr = errors.New("db down")
	h := NewHandler(target, testLogger())

	err := h.HandleGraphChanged(context.Background(), events.GraphChanged{Source: "import"})
	if err == nil || !errors.Is(err, target.reloadErr) {
		t.Fatalf("expected wrapped reload error, got %v", err)
	}
}

func TestStartSubscriber(t *testing.T) {
	target := newMockTarget()
	h := NewHandler(target, testLogger())
	sub := &chanSubscriber{ch: make(chan []byte, 4)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.StartSubscriber(ctx, sub) }()

	sub.ch <- []byte("not json")
	payload, _ := json.Marshal(events.GraphChanged{Source: "import", Nodes: 3, Edges: 2})
	sub.ch <- payload

	select {
	case <-target.reloaded:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("StartSubscriber: %v", err)
	}

	if sub.topic != events.TopicGraphChanged {
		t.Errorf("subscribed to %q", sub.topic)
	}
	target.mu.Lock()
	defer target.mu.Unlock()
	if len(target.reasons) != 1 {
		t.Errorf("malformed payload should be skipped; reloads = %v", target.reasons)
	}
}

func TestStartSubscriber_ClosedChannel(t *testing.T) {
	sub := &chanSubscriber{ch: make(chan []byte)}
	close(sub.ch)
	if err := NewHandler(newMockTarget(), nil).StartSubscriber(context.Background(), sub); err != nil {
		t.Fatalf("expected nil on closed channel, got %v", err)
	}
}

func TestStartSubscriber_SubscribeError(t *testing.T) {
	if err := NewHandler(newMockTarget(), nil).StartSubscriber(context.Background(), failingSubscriber{}); err == nil {
		t.Fatal("expected subscribe error")
	}
}
