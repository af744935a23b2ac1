package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cinetix/cinetix/api"
	"github.com/cinetix/cinetix/internal/domain"
	appvalidator "github.com/cinetix/cinetix/internal/validator"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	ErrInternalServer   = "the server encountered a problem and could not process your request"
	ErrNotFound         = "the requested resource could not be found"
	ErrNoActiveHold     = "you have no active seat hold for this showtime"
	ErrHoldExpired      = "your seat hold has expired, please select your seats again"
	ErrSeatsUnavailable = "some of the selected seats are no longer available"
	ErrStoreUnavailable = "the reservation service is temporarily unavailable, please try again"
)

func (app *Application) logError(r *http.Request, err error) {
	app.contextGetLogger(r).Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI())
}

func (app *Application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	resp := api.ErrorResponse{
		Message:   message,
		RequestId: middleware.GetReqID(r.Context()),
		Timestamp: time.Now().UTC(),
	}

	err := app.writeJSON(w, status, resp, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *Application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, ErrInternalServer)
}

func (app *Application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

func (app *Application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, ErrNotFound)
}

func (app *Application) conflictResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusConflict, message)
}

func (app *Application) goneResponse(w http.ResponseWriter, r *http.Request, message string) {
	app.errorResponse(w, r, http.StatusGone, message)
}

func (app *Application) serviceUnavailableResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusServiceUnavailable, ErrStoreUnavailable)
}

func (app *Application) seatsUnavailableResponse(w http.ResponseWriter, r *http.Request, rejected []int) {
	resp := api.SeatsUnavailableResponse{
		Message:         ErrSeatsUnavailable,
		RejectedSeatIds: rejected,
		RequestId:       middleware.GetReqID(r.Context()),
		Timestamp:       time.Now().UTC(),
	}

	err := app.writeJSON(w, http.StatusConflict, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	validationErrors := make([]api.ValidationError, 0, len(errs))
	for _, fieldErr := range errs {
		validationErrors = append(validationErrors, api.ValidationError{
			Field: fieldErr.Field(),
			Issue: appvalidator.ValidationMessage(fieldErr),
		})
	}

	resp := api.ValidationErrorResponse{
		Message:          "the request contains invalid fields",
		RequestId:        middleware.GetReqID(r.Context()),
		Timestamp:        time.Now().UTC(),
		ValidationErrors: validationErrors,
	}

	err := app.writeJSON(w, http.StatusUnprocessableEntity, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// reservationErrorResponse maps the coordinator's error taxonomy onto HTTP
// statuses. Anything outside the taxonomy is a server error.
func (app *Application) reservationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var seatsUnavailable *domain.SeatsUnavailableError

	switch {
	case errors.As(err, &seatsUnavailable):
		app.seatsUnavailableResponse(w, r, seatsUnavailable.Rejected)
	case errors.Is(err, domain.ErrEmptySelection):
		app.badRequestResponse(w, r, fmt.Errorf("seat selection must not be empty"))
	case errors.Is(err, domain.ErrNoActiveHold):
		app.conflictResponse(w, r, ErrNoActiveHold)
	case errors.Is(err, domain.ErrHoldExpired):
		app.goneResponse(w, r, ErrHoldExpired)
	case errors.Is(err, domain.ErrRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, domain.ErrStoreUnavailable):
		app.serviceUnavailableResponse(w, r, err)
	default:
		app.serverErrorResponse(w, r, err)
	}
}
