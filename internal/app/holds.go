package app

import (
	"errors"
	"net/http"

	"github.com/cinetix/cinetix/api"
	"github.com/cinetix/cinetix/internal/domain"
	"github.com/go-playground/validator/v10"
)

func (app *Application) CreateHoldHandler(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int) {

	logger := app.contextGetLogger(r)

	var req api.CreateHoldRequest

	err := app.readJSON(w, r, &req)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(req)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			app.failedValidationResponse(w, r, validationErrors)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	holderID := app.holderID(r)

	hold, err := app.coordinator.HoldSeats(r.Context(), holderID, showtimeID, req.SeatIdList)
	if err != nil {
		var seatsUnavailable *domain.SeatsUnavailableError
		if errors.As(err, &seatsUnavailable) {
			app.metrics.holdsRejected.Add(r.Context(), 1)
			logger.Info("hold rejected",
				"showtime_id", showtimeID,
				"rejected_seats", seatsUnavailable.Rejected)
		}
		app.reservationErrorResponse(w, r, err)
		return
	}

	app.metrics.holdsGranted.Add(r.Context(), 1)
	logger.Info("hold granted",
		"showtime_id", showtimeID,
		"seat_count", len(hold.SeatIDs),
		"expires_at", hold.ExpiresAt)

	resp := api.HoldResponse{
		ShowtimeId: hold.ShowtimeID,
		SeatIds:    hold.SeatIDs,
		ExpiresAt:  hold.ExpiresAt,
		HoldTime:   int(app.config.Reservation.HoldTTL.Seconds()),
	}

	err = app.writeJSON(w, http.StatusCreated, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) DeleteHoldHandler(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int) {

	holderID := app.holderID(r)

	err := app.coordinator.CancelHold(r.Context(), holderID, showtimeID)
	if err != nil {
		// Cancelling an already-expired hold is a no-op, not an error.
		if errors.Is(err, domain.ErrNoActiveHold) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		app.reservationErrorResponse(w, r, err)
		return
	}

	app.metrics.holdsReleased.Add(r.Context(), 1)

	w.WriteHeader(http.StatusNoContent)
}
