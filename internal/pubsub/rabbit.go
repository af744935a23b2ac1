package pubsub

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/cinetix/cinetix/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const seatEventsExchange = "seat.events"

// RabbitBroker routes events through a direct exchange keyed by showtime
// ID. Each subscriber gets an exclusive auto-deleted queue, so queues
// disappear together with their viewers and messages are never replayed to
// late joiners. Events are transient on purpose: a missed event is repaired
// by the next seat map fetch.
type RabbitBroker struct {
	conn *amqp.Connection

	mu      sync.Mutex
	pubChan *amqp.Channel
}

func NewRabbitBroker(url string) (*RabbitBroker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	err = declareSeatEventsExchange(ch)
	if err != nil {
		conn.Close()
		return nil, err
	}

	return &RabbitBroker{
		conn:    conn,
		pubChan: ch,
	}, nil
}

func declareSeatEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		seatEventsExchange,
		amqp.ExchangeDirect,
		false, // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

func (b *RabbitBroker) Publish(ctx context.Context, event domain.SeatEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishes.
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.pubChan.PublishWithContext(ctx,
		seatEventsExchange,
		strconv.Itoa(event.ShowtimeID),
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Transient,
			Body:         payload,
		},
	)
}

func (b *RabbitBroker) Subscribe(ctx context.Context, showtimeID int) (*Subscription, error) {
	ch, err := b.conn.Channel()
	if err != nil {
		return nil, err
	}

	queue, err := ch.QueueDeclare(
		"",    // broker-named
		false, // durable
		true,  // autoDelete
		true,  // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, err
	}

	err = ch.QueueBind(queue.Name, strconv.Itoa(showtimeID), seatEventsExchange, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}

	deliveries, err := ch.Consume(queue.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, err
	}

	events := make(chan domain.SeatEvent, subscriberBuffer)

	go func() {
		defer close(events)

		for delivery := range deliveries {
			var event domain.SeatEvent

			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				continue
			}

			select {
			case events <- event:
			default:
			}
		}
	}()

	cancel := func() {
		ch.Close()
	}

	return newSubscription(events, cancel), nil
}

func (b *RabbitBroker) Close() error {
	return b.conn.Close()
}
