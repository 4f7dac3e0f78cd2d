// Package hooks reacts to graph change announcements on the event bus.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/alfredjeanlab/graphview/internal/events"
	"github.com/alfredjeanlab/graphview/internal/model"
)

// Target is the server state a change announcement acts on.
type Target interface {
	Reload(ctx context.Context, reason string) (*model.GraphStats, error)
	Broadcast(topic string, event any)
}

// Handler relays graph change events to live viewers and reloads the
// snapshot.
type Handler struct {
	target Target
	logger *slog.Logger
}

// NewHandler creates a handler acting on target.
func NewHandler(target Target, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{target: target, logger: logger}
}

// HandleGraphChanged forwards event to SSE clients, then reloads.
func (h *Handler) HandleGraphChanged(ctx context.Context, event events.GraphChanged) error {
	h.target.Broadcast(events.TopicGraphChanged, event)
	if _, err := h.target.Reload(ctx, "event"); err != nil {
		return fmt.Errorf("hooks: reload after %s: %w", event.Source, err)
	}
	return nil
}

// StartSubscriber listens for change events and handles each one. It
// blocks until ctx is cancelled or the subscription ends.
func (h *Handler) StartSubscriber(ctx context.Context, sub events.Subscriber) error {
	h.logger.Info("hooks: subscriber started")
	err := events.OnEach(ctx, sub, events.TopicGraphChanged, func(ctx context.Context, raw []byte) {
		var event events.GraphChanged
		if err := json.Unmarshal(raw, &event); err != nil {
			h.logger.Warn("hooks: bad event payload", "err", err)
			return
		}
		if err := h.HandleGraphChanged(ctx, event); err != nil {
			h.logger.Error("hooks: change not applied", "err", err)
			return
		}
		h.logger.Info("hooks: reloaded after change", "source", event.Source, "nodes", event.Nodes, "edges", event.Edges)
	})
	if err != nil {
		return fmt.Errorf("hooks: subscribe: %w", err)
	}
	h.logger.Info("hooks: subscriber stopped")
	return nil
}
