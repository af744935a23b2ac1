package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusSuccess OrderStatus = "success"
	OrderStatusFailed  OrderStatus = "failed"
)

// Order is a booking in progress: it correlates a seat set, a payment
// gateway session, and a timeout. While an order is pending its seats are
// held or booked, never available; the sweeper fails orders that outlive
// their timeout.
type Order struct {
	ID                uuid.UUID
	HolderID          string
	ShowtimeID        int
	SeatIDs           []int
	CustomerEmail     string
	Amount            decimal.Decimal
	Currency          string
	Status            OrderStatus
	CheckoutSessionID *string
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}

type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByCheckoutSessionID(ctx context.Context, sessionID string) (*Order, error)
	SetCheckoutSessionID(ctx context.Context, id uuid.UUID, sessionID string) error

	// MarkSuccess and MarkFailed move a pending order to its terminal
	// status. They report false without error when the order is already
	// terminal, which makes gateway callback retries harmless.
	MarkSuccess(ctx context.Context, id uuid.UUID) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID) (bool, error)

	// StalePending lists pending orders created before the cutoff.
	StalePending(ctx context.Context, cutoff time.Time) ([]Order, error)
}
