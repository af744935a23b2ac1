// Package reservation coordinates seat holds across the three stores
// involved in a booking: the relational ledger (authoritative), the TTL
// hold store (advisory), and the live event channel. The ledger is only
// ever mutated through its atomic transitions, so two requests racing for
// the same seat deterministically produce one grant and one rejection.
package reservation

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/google/uuid"
)

type Coordinator struct {
	ledger    domain.LedgerRepository
	holds     domain.HoldStore
	orders    domain.OrderRepository
	publisher domain.EventPublisher
	logger    *slog.Logger
	holdTTL   time.Duration

	mu        sync.Mutex
	showtimes map[int]*sync.Mutex
}

func NewCoordinator(
	ledger domain.LedgerRepository,
	holds domain.HoldStore,
	orders domain.OrderRepository,
	publisher domain.EventPublisher,
	logger *slog.Logger,
	holdTTL time.Duration) *Coordinator {

	return &Coordinator{
		ledger:    ledger,
		holds:     holds,
		orders:    orders,
		publisher: publisher,
		logger:    logger,
		holdTTL:   holdTTL,
		showtimes: make(map[int]*sync.Mutex),
	}
}

// lockShowtime serializes ledger mutations and their event publishes for
// one showtime, so subscribers observe events in the order the mutations
// committed. Seats of different showtimes stay fully concurrent.
func (c *Coordinator) lockShowtime(showtimeID int) func() {
	c.mu.Lock()
	lock, ok := c.showtimes[showtimeID]
	if !ok {
		lock = &sync.Mutex{}
		c.showtimes[showtimeID] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// HoldSeats grants the full seat set or nothing. A holder re-requesting
// seats for a showtime replaces their prior hold, so reshuffling a
// selection never conflicts with the holder's own seats.
func (c *Coordinator) HoldSeats(
	ctx context.Context,
	holderID string,
	showtimeID int,
	seatIDs []int) (*domain.Hold, error) {

	seatIDs = normalizeSeatIDs(seatIDs)
	if len(seatIDs) == 0 {
		return nil, domain.ErrEmptySelection
	}

	unlock := c.lockShowtime(showtimeID)
	defer unlock()

	prior, err := c.holds.Get(ctx, holderID, showtimeID)
	if err != nil && !errors.Is(err, domain.ErrNoActiveHold) {
		return nil, err
	}

	if prior != nil {
		err = c.releasePriorHold(ctx, prior)
		if err != nil {
			return nil, err
		}
	}

	err = c.ledger.TryHold(ctx, showtimeID, seatIDs)
	if err != nil {
		if prior != nil {
			c.restorePriorHold(ctx, prior)
		}

		return nil, err
	}

	hold := domain.Hold{
		HolderID:   holderID,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
		ExpiresAt:  time.Now().Add(c.holdTTL),
	}

	err = c.holds.Put(ctx, hold, c.holdTTL)
	if err != nil {
		// The grant must not outlive a failed hold write: without the TTL
		// entry nothing would ever expire these seats except the sweeper.
		rollbackErr := c.ledger.Release(ctx, showtimeID, seatIDs)
		if rollbackErr != nil {
			c.logger.Error(
				"failed to roll back ledger grant after hold store failure",
				"showtime_id", showtimeID,
				"seat_ids", seatIDs,
				"error", rollbackErr,
			)
		}

		return nil, err
	}

	c.publish(ctx, domain.SeatEventHeld, showtimeID, seatIDs)

	return &hold, nil
}

func (c *Coordinator) releasePriorHold(ctx context.Context, prior *domain.Hold) error {
	err := c.ledger.Release(ctx, prior.ShowtimeID, prior.SeatIDs)
	if err != nil {
		return err
	}

	err = c.holds.Delete(ctx, prior.HolderID, prior.ShowtimeID)
	if err != nil {
		return err
	}

	c.publish(ctx, domain.SeatEventReleased, prior.ShowtimeID, prior.SeatIDs)

	return nil
}

// restorePriorHold re-grants a hold that was released to make room for a
// replacement request the ledger then rejected, so a rejected reshuffle
// does not cost the holder their original seats. Best effort: the hold is
// restored with its remaining TTL, or not at all once that TTL lapsed.
func (c *Coordinator) restorePriorHold(ctx context.Context, prior *domain.Hold) {
	ttl := time.Until(prior.ExpiresAt)
	if ttl <= 0 {
		return
	}

	err := c.ledger.TryHold(ctx, prior.ShowtimeID, prior.SeatIDs)
	if err != nil {
		c.logger.Warn(
			"failed to restore prior hold after rejected replacement",
			"showtime_id", prior.ShowtimeID,
			"seat_ids", prior.SeatIDs,
			"error", err,
		)
		return
	}

	err = c.holds.Put(ctx, *prior, ttl)
	if err != nil {
		rollbackErr := c.ledger.Release(ctx, prior.ShowtimeID, prior.SeatIDs)
		if rollbackErr != nil {
			c.logger.Error(
				"failed to roll back restored ledger grant after hold store failure",
				"showtime_id", prior.ShowtimeID,
				"seat_ids", prior.SeatIDs,
				"error", rollbackErr,
			)
		}
		return
	}

	c.publish(ctx, domain.SeatEventHeld, prior.ShowtimeID, prior.SeatIDs)
}

// CancelHold releases the holder's seats for a showtime. Callers decide how
// to surface ErrNoActiveHold; the HTTP layer treats it as a no-op success.
func (c *Coordinator) CancelHold(ctx context.Context, holderID string, showtimeID int) error {
	unlock := c.lockShowtime(showtimeID)
	defer unlock()

	hold, err := c.holds.Get(ctx, holderID, showtimeID)
	if err != nil {
		return err
	}

	err = c.ledger.Release(ctx, showtimeID, hold.SeatIDs)
	if err != nil {
		return err
	}

	err = c.holds.Delete(ctx, holderID, showtimeID)
	if err != nil {
		return err
	}

	c.publish(ctx, domain.SeatEventReleased, showtimeID, hold.SeatIDs)

	return nil
}

// ConfirmBooking finalizes an order once its payment succeeded. The hold is
// re-verified first, and the ledger transition itself re-checks that every
// seat is still held, so a sweeper release racing with the confirmation
// surfaces as a failure instead of corrupting state.
func (c *Coordinator) ConfirmBooking(
	ctx context.Context,
	holderID string,
	showtimeID int,
	seatIDs []int,
	orderID uuid.UUID) error {

	order, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if order.Status != domain.OrderStatusPending {
		// Gateways retry callbacks; a terminal order means this one was
		// already processed.
		return nil
	}

	unlock := c.lockShowtime(showtimeID)
	defer unlock()

	hold, err := c.holds.Get(ctx, holderID, showtimeID)
	if err != nil && !errors.Is(err, domain.ErrNoActiveHold) {
		// A store read failure here is treated as a missing hold: asking
		// the user to reselect beats stalling a payment confirmation on
		// retries.
		c.logger.Warn(
			"hold store read failed during booking confirmation, treating hold as expired",
			"order_id", orderID,
			"error", err,
		)
		hold = nil
	}

	if hold == nil || !hold.Covers(seatIDs) {
		return domain.ErrHoldExpired
	}

	err = c.ledger.ConfirmBooking(ctx, showtimeID, seatIDs)
	if err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) || !c.seatsAlreadyBooked(ctx, showtimeID, seatIDs) {
			return err
		}
		// A prior attempt booked the seats but failed before the order
		// flip; the hold is still live and covers the seats, so nobody
		// else can have booked them. Resume from the flip so gateway
		// retries converge on success instead of stranding booked seats.
	}

	_, err = c.orders.MarkSuccess(ctx, orderID)
	if err != nil {
		return err
	}

	err = c.holds.Delete(ctx, holderID, showtimeID)
	if err != nil {
		// The ledger is already authoritative; a stale hold entry expires
		// harmlessly on its own.
		c.logger.Warn(
			"failed to delete hold after booking confirmation",
			"order_id", orderID,
			"error", err,
		)
	}

	c.publish(ctx, domain.SeatEventBooked, showtimeID, seatIDs)

	return nil
}

// seatsAlreadyBooked reports whether every given seat is booked in the
// ledger, which on a confirmation retry means a prior attempt completed the
// ledger transition.
func (c *Coordinator) seatsAlreadyBooked(ctx context.Context, showtimeID int, seatIDs []int) bool {
	states, err := c.ledger.SeatStates(ctx, showtimeID, seatIDs)
	if err != nil {
		return false
	}

	for _, seatID := range seatIDs {
		if states[seatID] != domain.SeatBooked {
			return false
		}
	}

	return true
}

// FailBooking reverts a pending order whose payment failed, was cancelled,
// or timed out. It is idempotent and never steals seats from a holder who
// legitimately re-held them after this order's hold expired.
func (c *Coordinator) FailBooking(ctx context.Context, orderID uuid.UUID) error {
	order, err := c.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			return nil
		}

		return err
	}

	if order.Status != domain.OrderStatusPending {
		return nil
	}

	unlock := c.lockShowtime(order.ShowtimeID)
	defer unlock()

	releasable, err := c.releasableSeats(ctx, order)
	if err != nil {
		// Leave the seats to the sweeper rather than risk releasing a seat
		// that now belongs to someone else.
		c.logger.Warn(
			"hold store unreachable while failing order, deferring seat release to sweeper",
			"order_id", orderID,
			"error", err,
		)
		releasable = nil
	}

	if len(releasable) > 0 {
		released, err := c.releaseSeats(ctx, order.ShowtimeID, releasable)
		if err != nil {
			return err
		}

		if len(released) > 0 {
			c.publish(ctx, domain.SeatEventReleased, order.ShowtimeID, released)
		}
	}

	_, err = c.orders.MarkFailed(ctx, orderID)

	return err
}

// ReclaimSeats releases the given held seats unless a live hold still locks
// them. The locked-seat check runs under the showtime lock, so a hold granted
// between a caller's scan and this call is never reclaimed. It returns the
// seats that were released.
func (c *Coordinator) ReclaimSeats(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	unlock := c.lockShowtime(showtimeID)
	defer unlock()

	locked, err := c.holds.LockedSeats(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	lockedSet := make(map[int]bool, len(locked))
	for _, seatID := range locked {
		lockedSet[seatID] = true
	}

	orphans := make([]int, 0, len(seatIDs))
	for _, seatID := range seatIDs {
		if !lockedSet[seatID] {
			orphans = append(orphans, seatID)
		}
	}

	if len(orphans) == 0 {
		return nil, nil
	}

	released, relErr := c.releaseSeats(ctx, showtimeID, orphans)

	if len(released) > 0 {
		c.publish(ctx, domain.SeatEventReleased, showtimeID, released)
	}

	return released, relErr
}

// releasableSeats filters the order's seats down to those not locked by a
// different holder in the hold store.
func (c *Coordinator) releasableSeats(ctx context.Context, order *domain.Order) ([]int, error) {
	owners, err := c.holds.SeatOwners(ctx, order.ShowtimeID, order.SeatIDs)
	if err != nil {
		return nil, err
	}

	releasable := make([]int, 0, len(order.SeatIDs))

	for _, seatID := range order.SeatIDs {
		owner, locked := owners[seatID]
		if !locked || owner == order.HolderID {
			releasable = append(releasable, seatID)
		}
	}

	return releasable, nil
}

// releaseSeats releases the given seats, falling back to seat-by-seat
// releases when the batch fails because some seat was booked in the
// meantime. It returns the seats that were actually released.
func (c *Coordinator) releaseSeats(ctx context.Context, showtimeID int, seatIDs []int) ([]int, error) {
	err := c.ledger.Release(ctx, showtimeID, seatIDs)
	if err == nil {
		return seatIDs, nil
	}

	if !errors.Is(err, domain.ErrInvalidTransition) {
		return nil, err
	}

	released := make([]int, 0, len(seatIDs))

	for _, seatID := range seatIDs {
		err = c.ledger.Release(ctx, showtimeID, []int{seatID})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				c.logger.Warn(
					"skipping release of booked seat",
					"showtime_id", showtimeID,
					"seat_id", seatID,
				)
				continue
			}

			return released, err
		}

		released = append(released, seatID)
	}

	return released, nil
}

// publish pushes a seat event to the notification channel. Publishing is
// best-effort relative to the caller's response: clients recover from a
// lost event by re-fetching the seat map.
func (c *Coordinator) publish(
	ctx context.Context,
	eventType domain.SeatEventType,
	showtimeID int,
	seatIDs []int) {

	event := domain.SeatEvent{
		Type:       eventType,
		ShowtimeID: showtimeID,
		SeatIDs:    seatIDs,
	}

	err := c.publisher.Publish(ctx, event)
	if err != nil {
		c.logger.Error(
			"failed to publish seat event",
			"type", eventType,
			"showtime_id", showtimeID,
			"error", err,
		)
	}
}

func normalizeSeatIDs(seatIDs []int) []int {
	seen := make(map[int]bool, len(seatIDs))
	normalized := make([]int, 0, len(seatIDs))

	for _, id := range seatIDs {
		if seen[id] {
			continue
		}

		seen[id] = true
		normalized = append(normalized, id)
	}

	sort.Ints(normalized)

	return normalized
}
