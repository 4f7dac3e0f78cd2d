package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	clientName = "graphview"

	// subscriptionBuffer bounds the payloads queued per subscription. Later
	// payloads are dropped until the consumer catches up.
	subscriptionBuffer = 64

	defaultFlushTimeout = 5 * time.Second
)

// dial connects with graphview defaults. opts are applied after the
// defaults and may override them.
func dial(url string, opts ...nats.Option) (*nats.Conn, error) {
	all := append([]nats.Option{
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}, opts...)
	nc, err := nats.Connect(url, all...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NATSPublisher publishes events as JSON messages on their topic subject.
type NATSPublisher struct {
	conn *nats.Conn
}

func NewNATSPublisher(url string, opts ...nats.Option) (*NATSPublisher, error) {
	nc, err := dial(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, topic string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling %s event: %w", topic, err)
	}
	msg := nats.NewMsg(topic)
	msg.Header.Set("Content-Type", "application/json")
	msg.Data = data
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publishing %s: %w", topic, err)
	}
	return nil
}

// Flush blocks until the server has acknowledged everything published so
// far. Without a context deadline it gives up after five seconds.
func (p *NATSPublisher) Flush(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultFlushTimeout)
		defer cancel()
	}
	return p.conn.FlushWithContext(ctx)
}

func (p *NATSPublisher) Close() error {
	p.conn.Close()
	return nil
}

// NATSSubscriber delivers payloads from NATS subjects over channels.
type NATSSubscriber struct {
	conn *nats.Conn
}

// NewNATSSubscriber connects with unlimited reconnects. Extra options such
// as disconnect or reconnect handlers are appended.
func NewNATSSubscriber(url string, opts ...nats.Option) (*NATSSubscriber, error) {
	nc, err := dial(url, opts...)
	if err != nil {
		return nil, err
	}
	return &NATSSubscriber{conn: nc}, nil
}

// natsSubscription forwards messages to ch without ever blocking the NATS
// dispatcher. Once closed, late messages are ignored.
type natsSubscription struct {
	topic string
	sub   *nats.Subscription

	mu      sync.Mutex
	ch      chan []byte
	closed  bool
	dropped int
}

func (s *natsSubscription) deliver(msg *nats.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg.Data:
	default:
		s.dropped++
		slog.Debug("event dropped, subscriber busy", "topic", s.topic, "dropped", s.dropped)
	}
}

func (s *natsSubscription) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	close(s.ch)
}

// Subscribe accepts NATS wildcards such as TopicAll. The subscription is
// registered on the server before Subscribe returns.
func (s *NATSSubscriber) Subscribe(topic string) (<-chan []byte, func(), error) {
	ns := &natsSubscription{topic: topic, ch: make(chan []byte, subscriptionBuffer)}

	sub, err := s.conn.Subscribe(topic, ns.deliver)
	if err != nil {
		ns.cancel()
		return nil, nil, fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	ns.mu.Lock()
	ns.sub = sub
	ns.mu.Unlock()

	if err := s.conn.Flush(); err != nil {
		ns.cancel()
		return nil, nil, fmt.Errorf("flushing subscription to %s: %w", topic, err)
	}
	return ns.ch, ns.cancel, nil
}

func (s *NATSSubscriber) Close() error {
	s.conn.Close()
	return nil
}
