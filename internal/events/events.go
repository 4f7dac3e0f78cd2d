package events

import (
	"context"
	"time"

	"github.com/alfredjeanlab/graphview/internal/model"
)

// Event topic constants
const (
	// TopicGraphLoaded is published by the server after a new snapshot is
	// swapped in.
	TopicGraphLoaded = "graphview.graph.loaded"
	// TopicGraphChanged is published by writers (seed, import) after they
	// commit; servers subscribed to it reload.
	TopicGraphChanged = "graphview.graph.changed"

	// TopicAll matches every graphview topic.
	TopicAll = "graphview.>"
)

// Event types

type GraphLoaded struct {
	Stats  *model.GraphStats `json:"stats"`
	Reason string            `json:"reason"` // startup, api, watch, event
}

type GraphChanged struct {
	Source    string    `json:"source"` // seed, import
	Nodes     int       `json:"nodes"`
	Edges     int       `json:"edges"`
	ChangedAt time.Time `json:"changed_at"`
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Fanout publishes every event to each of its publishers. The first error is
// returned after all publishers have been tried.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, topic string, event any) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, topic, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f Fanout) Close() error {
	var first error
	for _, p := range f {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// NoopPublisher discards every event. It stands in when NATS is not
// configured.
type NoopPublisher struct{}

func (*NoopPublisher) Publish(context.Context, string, any) error { return nil }
func (*NoopPublisher) Close() error                               { return nil }
