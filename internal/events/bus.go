package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rpggio/vestline/internal/domain/vesting"
)

// Bus fans vesting events out to in-process subscribers. Slow subscribers
// lose events rather than block the operation that produced them.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan vesting.Event
	buffer      int
	logger      *slog.Logger
}

// NewBus creates a bus whose subscribers buffer up to buffer events.
func NewBus(buffer int, logger *slog.Logger) *Bus {
	if buffer <= 0 {
		buffer = 128
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{buffer: buffer, logger: logger}
}

// Publish implements vesting.Publisher.
func (b *Bus) Publish(ctx context.Context, event vesting.Event) error {
	b.mu.RLock()
	subs := append([]chan vesting.Event(nil), b.subscribers...)
	b.mu.RUnlock()

	for _, sub := range subs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sub <- event:
		default:
			b.logger.Warn("dropping event for slow subscriber",
				"event_id", event.ID,
				"event_type", event.Type,
				"instance_id", event.InstanceID,
			)
		}
	}
	return nil
}

// Subscribe delivers events to handler until ctx is done.
func (b *Bus) Subscribe(ctx context.Context, name string, handler func(context.Context, vesting.Event) error) {
	ch := make(chan vesting.Event, b.buffer)

	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()

	go func() {
		defer b.remove(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case event := <-ch:
				if err := handler(ctx, event); err != nil {
					b.logger.Error("event handler failed",
						"subscriber", name,
						"event_id", event.ID,
						"event_type", event.Type,
						"error", err,
					)
				}
			}
		}
	}()
}

func (b *Bus) remove(target chan vesting.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	filtered := b.subscribers[:0]
	for _, sub := range b.subscribers {
		if sub != target {
			filtered = append(filtered, sub)
		}
	}
	b.subscribers = filtered
}

// LogHandler returns a subscriber that writes each event to logger.
func LogHandler(logger *slog.Logger) func(context.Context, vesting.Event) error {
	return func(ctx context.Context, event vesting.Event) error {
		attrs := []any{
			"event_id", event.ID,
			"instance_id", event.InstanceID,
			"actor", event.Actor,
			"amount", event.Amount.String(),
		}
		if !event.Beneficiary.IsZero() {
			attrs = append(attrs, "beneficiary", event.Beneficiary)
		}
		if !event.Asset.IsZero() {
			attrs = append(attrs, "asset", event.Asset)
		}
		for k, v := range event.Detail {
			attrs = append(attrs, k, v)
		}
		logger.InfoContext(ctx, "vesting event "+string(event.Type), attrs...)
		return nil
	}
}
