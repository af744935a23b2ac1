package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisBroker fans events out over Redis Pub/Sub, one channel per showtime,
// so every API instance sees every event regardless of which instance's
// coordinator produced it.
type RedisBroker struct {
	client redis.UniversalClient
}

func NewRedisBroker(client redis.UniversalClient) *RedisBroker {
	return &RedisBroker{
		client: client,
	}
}

func (b *RedisBroker) Publish(ctx context.Context, event domain.SeatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return b.client.Publish(ctx, eventChannel(event.ShowtimeID), payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, showtimeID int) (*Subscription, error) {
	ps := b.client.Subscribe(ctx, eventChannel(showtimeID))

	// Force the subscription onto the wire before the caller relies on it.
	_, err := ps.Receive(ctx)
	if err != nil {
		ps.Close()
		return nil, err
	}

	events := make(chan domain.SeatEvent, subscriberBuffer)

	go func() {
		defer close(events)

		for msg := range ps.Channel() {
			var event domain.SeatEvent

			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}

			select {
			case events <- event:
			default:
			}
		}
	}()

	cancel := func() {
		ps.Close()
	}

	return newSubscription(events, cancel), nil
}

// Close is a no-op: the Redis client is shared with the rest of the
// application and owned by it.
func (b *RedisBroker) Close() error {
	return nil
}

func eventChannel(showtimeID int) string {
	return fmt.Sprintf("seat_events:%d", showtimeID)
}
