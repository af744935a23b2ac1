package domain

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound    = errors.New("record not found")
	ErrEditConflict      = errors.New("edit conflict")
	ErrEmptySelection    = errors.New("seat selection must not be empty")
	ErrNoActiveHold      = errors.New("no active hold for this showtime")
	ErrHoldExpired       = errors.New("hold has expired, seats must be selected again")
	ErrInvalidTransition = errors.New("invalid seat state transition")
	ErrStoreUnavailable  = errors.New("hold store unavailable")
)

// SeatsUnavailableError reports the subset of a hold request that could not
// be granted because another holder already has those seats. A hold request
// is all-or-nothing, so the presence of any rejected seat means no seat from
// the request was held.
type SeatsUnavailableError struct {
	Rejected []int
}

func (e *SeatsUnavailableError) Error() string {
	return fmt.Sprintf("seats are no longer available: %v", e.Rejected)
}
