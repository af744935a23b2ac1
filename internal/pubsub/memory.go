package pubsub

import (
	"context"
	"sync"

	"github.com/cinetix/cinetix/internal/domain"
)

// MemoryBroker is the in-process transport for single-instance deployments.
// Events published for a seat are delivered to each subscriber in publish
// order; subscribers that fall more than subscriberBuffer events behind
// lose events rather than block the publisher.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[int]map[chan domain.SeatEvent]struct{}
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		subs: make(map[int]map[chan domain.SeatEvent]struct{}),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, event domain.SeatEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs[event.ShowtimeID] {
		select {
		case ch <- event:
		default:
		}
	}

	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context, showtimeID int) (*Subscription, error) {
	ch := make(chan domain.SeatEvent, subscriberBuffer)

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(ch)
		return newSubscription(ch, func() {}), nil
	}

	if b.subs[showtimeID] == nil {
		b.subs[showtimeID] = make(map[chan domain.SeatEvent]struct{})
	}
	b.subs[showtimeID][ch] = struct{}{}

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		if _, ok := b.subs[showtimeID][ch]; !ok {
			return
		}

		delete(b.subs[showtimeID], ch)
		if len(b.subs[showtimeID]) == 0 {
			delete(b.subs, showtimeID)
		}

		close(ch)
	}

	return newSubscription(ch, cancel), nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, subs := range b.subs {
		for ch := range subs {
			close(ch)
		}
	}
	b.subs = make(map[int]map[chan domain.SeatEvent]struct{})

	return nil
}
