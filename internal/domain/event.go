package domain

import "context"

type SeatEventType string

const (
	SeatEventHeld     SeatEventType = "HELD"
	SeatEventReleased SeatEventType = "RELEASED"
	SeatEventBooked   SeatEventType = "BOOKED"
)

// SeatEvent is broadcast to every viewer of a showtime's seat map whenever
// seats change state. Delivery is at-most-once; clients re-fetch the seat
// map snapshot after a reconnect.
type SeatEvent struct {
	Type       SeatEventType `json:"type"`
	ShowtimeID int           `json:"showtime_id"`
	SeatIDs    []int         `json:"seat_ids"`
}

type EventPublisher interface {
	Publish(ctx context.Context, event SeatEvent) error
}
