package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type SeatState string

const (
	SeatAvailable SeatState = "available"
	SeatHeld      SeatState = "held"
	SeatBooked    SeatState = "booked"
)

// SeatSlot is the durable state of one physical seat within one showtime.
// Slots only ever move available -> held -> booked, or held -> available on
// release; booked is terminal for the showtime.
type SeatSlot struct {
	ShowtimeID int
	SeatID     int
	State      SeatState
}

type ShowtimeSeatMap struct {
	ShowtimeID int
	MovieTitle string
	HallName   string
	StartsAt   time.Time
	BasePrice  decimal.Decimal
	Seats      []ShowtimeSeat
}

type ShowtimeSeat struct {
	ID         int
	Row        int
	Col        int
	Type       string
	ExtraPrice decimal.Decimal
	State      SeatState
}

// LedgerRepository is the authoritative store of seat state. All mutations
// are atomic over the full requested seat set: TryHold grants every seat or
// none of them, ConfirmBooking books every seat or none of them.
type LedgerRepository interface {
	// TryHold moves every requested slot from available to held in a single
	// transaction. When any slot is not available the whole request fails
	// with a SeatsUnavailableError listing the conflicting seats, and no
	// slot changes state.
	TryHold(ctx context.Context, showtimeID int, seatIDs []int) error

	// Release moves held slots back to available. Slots that are already
	// available are skipped. A booked slot fails the whole call with
	// ErrInvalidTransition.
	Release(ctx context.Context, showtimeID int, seatIDs []int) error

	// ConfirmBooking moves held slots to booked. Every requested slot must
	// currently be held, otherwise the call fails with ErrInvalidTransition
	// and no slot changes state.
	ConfirmBooking(ctx context.Context, showtimeID int, seatIDs []int) error

	SeatMapByShowtime(ctx context.Context, showtimeID int) (*ShowtimeSeatMap, error)

	// SeatStates reads the current state of the given slots without locking
	// them. Seats that do not exist are omitted from the result.
	SeatStates(ctx context.Context, showtimeID int, seatIDs []int) (map[int]SeatState, error)

	// HeldSeats lists every slot currently in the held state, across all
	// showtimes. The sweeper reconciles this against the hold store.
	HeldSeats(ctx context.Context) ([]SeatSlot, error)

	// CreateSlots and DeleteSlots are invoked by the showtime lifecycle
	// collaborator when a showtime is scheduled or torn down.
	CreateSlots(ctx context.Context, showtimeID int, seatIDs []int) error
	DeleteSlots(ctx context.Context, showtimeID int) error
}
