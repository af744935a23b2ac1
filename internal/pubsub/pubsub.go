// Package pubsub fans seat events out to every viewer of a showtime's seat
// map. Delivery is at-most-once per subscriber: a dropped event is
// self-healing because clients re-fetch the authoritative seat map on
// reconnect. Transports are pluggable so a single instance can run fully
// in-process while multi-instance deployments go through Redis or RabbitMQ.
package pubsub

import (
	"context"
	"sync"

	"github.com/cinetix/cinetix/internal/domain"
)

// subscriberBuffer bounds how far a slow subscriber may lag before events
// are dropped for it.
const subscriberBuffer = 16

type Broker interface {
	domain.EventPublisher

	// Subscribe returns a subscription delivering the events of one
	// showtime. The caller must Close the subscription when done.
	Subscribe(ctx context.Context, showtimeID int) (*Subscription, error)

	Close() error
}

// Subscription is one subscriber's view of a showtime's event stream. C is
// closed when the subscription ends.
type Subscription struct {
	C <-chan domain.SeatEvent

	once   sync.Once
	cancel func()
}

func newSubscription(events <-chan domain.SeatEvent, cancel func()) *Subscription {
	return &Subscription{
		C:      events,
		cancel: cancel,
	}
}

func (s *Subscription) Close() {
	s.once.Do(s.cancel)
}
