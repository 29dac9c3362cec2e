// internal/bus/bus.go
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xkilldash9x/tourguard-cli/api/schemas"
	"go.uber.org/zap"
)

// Event is the envelope for data crossing the engine/host boundary.
type Event struct {
	ID        string
	Timestamp time.Time
	Type      schemas.EventType
	Payload   any
}

// Bus fans tour lifecycle events out to host subscribers. Consumers are
// fire-and-forget UI listeners; a full subscriber may drop events rather than
// stall the engine.
type Bus struct {
	logger *zap.Logger

	mu          sync.RWMutex
	subscribers map[schemas.EventType][]chan Event
	bufferSize  int

	shutdownChan chan struct{}
	shutdownOnce sync.Once
	isShutdown   bool
}

// New initializes the event bus. bufferSize applies per subscriber channel.
func New(logger *zap.Logger, bufferSize int) *Bus {
	if bufferSize < 1 {
		bufferSize = 16
	}
	return &Bus{
		logger:       logger.Named("bus"),
		subscribers:  make(map[schemas.EventType][]chan Event),
		bufferSize:   bufferSize,
		shutdownChan: make(chan struct{}),
	}
}

// Publish sends an event to every subscriber of its type. A subscriber whose
// buffer is full misses the event; publishing never blocks engine code.
func (b *Bus) Publish(ctx context.Context, eventType schemas.EventType, payload any) error {
	b.mu.RLock()
	if b.isShutdown {
		b.mu.RUnlock()
		return fmt.Errorf("cannot publish %q: bus is shut down", eventType)
	}
	subs, ok := b.subscribers[eventType]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return nil // No one is listening.
	}
	subsCopy := make([]chan Event, len(subs))
	copy(subsCopy, subs)
	b.mu.RUnlock()

	evt := Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Payload:   payload,
	}

	for _, ch := range subsCopy {
		select {
		case ch <- evt:
		case <-ctx.Done():
			return ctx.Err()
		case <-b.shutdownChan:
			return fmt.Errorf("cannot publish %q: bus is shutting down", eventType)
		default:
			b.logger.Warn("Dropping event for slow subscriber",
				zap.String("type", string(eventType)), zap.String("id", evt.ID))
		}
	}
	return nil
}

// Subscribe returns a channel receiving the given event types and a function
// that removes the subscription. The returned unsubscribe is idempotent.
func (b *Bus) Subscribe(eventTypes ...schemas.EventType) (<-chan Event, func()) {
	if len(eventTypes) == 0 {
		panic("bus: must subscribe to at least one event type")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.isShutdown {
		closedCh := make(chan Event)
		close(closedCh)
		return closedCh, func() {}
	}

	ch := make(chan Event, b.bufferSize)
	subscribed := make([]schemas.EventType, len(eventTypes))
	copy(subscribed, eventTypes)

	for _, et := range subscribed {
		b.subscribers[et] = append(b.subscribers[et], ch)
	}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if b.isShutdown {
				// Shutdown already closed every subscriber channel.
				return
			}
			for _, et := range subscribed {
				subs := b.subscribers[et]
				for i, subscriberCh := range subs {
					if subscriberCh == ch {
						copy(subs[i:], subs[i+1:])
						b.subscribers[et] = subs[:len(subs)-1]
						if len(b.subscribers[et]) == 0 {
							delete(b.subscribers, et)
						}
						break
					}
				}
			}
			close(ch)
		})
	}
	return ch, unsubscribe
}

// Shutdown closes the bus and every subscriber channel. Further publishes and
// subscriptions fail fast.
func (b *Bus) Shutdown() {
	b.shutdownOnce.Do(func() {
		close(b.shutdownChan)

		b.mu.Lock()
		defer b.mu.Unlock()
		b.isShutdown = true

		seen := make(map[chan Event]bool)
		for _, subs := range b.subscribers {
			for _, ch := range subs {
				if !seen[ch] {
					seen[ch] = true
					close(ch)
				}
			}
		}
		b.subscribers = make(map[schemas.EventType][]chan Event)
	})
}
