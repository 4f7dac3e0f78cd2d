package events

import (
	"context"
	"log/slog"
)

// Subscriber hands out channels of raw payloads for a topic. The cancel
// func unsubscribes and closes the channel; it is safe to call twice.
type Subscriber interface {
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

// OnEach runs fn for each payload published on topic. It returns nil when
// ctx ends or the subscription channel closes.
func OnEach(ctx context.Context, sub Subscriber, topic string, fn func(ctx context.Context, data []byte)) error {
	ch, unsubscribe, err := sub.Subscribe(topic)
	if err != nil {
		return err
	}
	defer unsubscribe()

	slog.Info("listening for events", "topic", topic)
	defer slog.Debug("stopped listening for events", "topic", topic)
	for {
		var (
			data []byte
			open bool
		)
		select {
		case <-ctx.Done():
			return nil
		case data, open = <-ch:
		}
		if !open {
			return nil
		}
		fn(ctx, data)
	}
}
