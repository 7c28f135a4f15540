// Package events is the in-process domain event bus. Publication never
// blocks the interaction path: a slow subscriber drops events rather than
// stalling a tap.
package events

import (
	"context"
	"log/slog"
	"sync"

	"tapcoins/contexts/game-core/tap-engine/ports"
)

type Bus struct {
	mu          sync.RWMutex
	subscribers []chan ports.Event
	logger      *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

func (b *Bus) Publish(ctx context.Context, event ports.Event) {
	b.mu.RLock()
	subs := append([]chan ports.Event(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return
		case sub <- event:
		default:
			if b.logger != nil {
				b.logger.Warn("dropping event for slow subscriber",
					"event", "event_bus_publish_drop",
					"module", "internal/platform/events",
					"layer", "platform",
					"event_type", event.Type,
					"user_id", event.UserID,
				)
			}
		}
	}
}

// Subscribe runs handler for every published event until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, handler func(context.Context, ports.Event)) {
	ch := make(chan ports.Event, 128)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				b.removeSubscriber(ch)
				return
			case event := <-ch:
				handler(ctx, event)
			}
		}
	}()
}

func (b *Bus) removeSubscriber(ch chan ports.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			return
		}
	}
}
