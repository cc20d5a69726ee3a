package events

import (
	"context"
	"log/slog"
	"sync"
)

// Fanout is a Publisher that forwards every message to all registered
// publishers in registration order.
type Fanout struct {
	publishers []Publisher
	mu         sync.RWMutex
	logger     *slog.Logger
}

// NewFanout creates a Fanout over the given publishers.
func NewFanout(logger *slog.Logger, publishers ...Publisher) *Fanout {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fanout{
		publishers: publishers,
		logger:     logger.With(slog.String("component", "event_fanout")),
	}
}

// Register adds a publisher.
func (f *Fanout) Register(p Publisher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishers = append(f.publishers, p)
	f.logger.Debug("registered publisher", slog.Int("publisher_count", len(f.publishers)))
}

// Publish sends msg to every publisher. A failing publisher does not stop
// the others; the first error is returned.
func (f *Fanout) Publish(ctx context.Context, msg Message) error {
	f.mu.RLock()
	publishers := make([]Publisher, len(f.publishers))
	copy(publishers, f.publishers)
	f.mu.RUnlock()

	if len(publishers) == 0 {
		f.logger.Warn("no publishers registered for event",
			slog.String("event_type", msg.Event.Type))
		return nil
	}

	var firstErr error
	for i, p := range publishers {
		if err := p.Publish(ctx, msg); err != nil {
			f.logger.Error("publisher failed to deliver event",
				slog.String("error", err.Error()),
				slog.Int("publisher_index", i),
				slog.String("event_id", msg.Event.ID.String()),
				slog.String("event_type", msg.Event.Type))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
