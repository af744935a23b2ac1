package domain

import (
	"context"
	"time"
)

// Hold is an ephemeral claim on a set of seats by one holder. At most one
// hold exists per (holder, showtime) pair; a new hold replaces the prior
// one. Holds expire natively in the store once their TTL lapses.
type Hold struct {
	HolderID   string    `json:"holder_id"`
	ShowtimeID int       `json:"showtime_id"`
	SeatIDs    []int     `json:"seat_ids"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Covers reports whether the hold claims exactly the given seat set.
func (h *Hold) Covers(seatIDs []int) bool {
	if len(h.SeatIDs) != len(seatIDs) {
		return false
	}

	held := make(map[int]bool, len(h.SeatIDs))
	for _, id := range h.SeatIDs {
		held[id] = true
	}

	for _, id := range seatIDs {
		if !held[id] {
			return false
		}
	}

	return true
}

// HoldStore is the TTL-native side of the reservation split: entries vanish
// on their own once the TTL elapses, with no sweeping required for the store
// itself. The ledger does not expire on its own, which is why the sweeper
// reconciles the two.
type HoldStore interface {
	// Put writes the hold with the given TTL, replacing any prior hold for
	// the same (holder, showtime) pair. Failures surface as
	// ErrStoreUnavailable.
	Put(ctx context.Context, hold Hold, ttl time.Duration) error

	// Get returns the live hold for the pair, or ErrNoActiveHold when the
	// entry is absent or already expired.
	Get(ctx context.Context, holderID string, showtimeID int) (*Hold, error)

	// Delete removes the hold and its per-seat locks. Absence is not an
	// error.
	Delete(ctx context.Context, holderID string, showtimeID int) error

	// LockedSeats returns the seats of a showtime with a live hold lock.
	LockedSeats(ctx context.Context, showtimeID int) ([]int, error)

	// SeatOwners maps each of the given seats to the holder of its live
	// lock. Seats with no live lock are omitted.
	SeatOwners(ctx context.Context, showtimeID int, seatIDs []int) (map[int]string, error)
}
