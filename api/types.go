// Package api holds the request and response types of the HTTP surface.
package api

import (
	"time"

	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	RequestId string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	RequestId        string            `json:"request_id,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
	ValidationErrors []ValidationError `json:"validation_errors"`
}

// SeatsUnavailableResponse is the expected-contention outcome of a hold
// request: the listed seats are taken and the user should pick others.
type SeatsUnavailableResponse struct {
	Message         string    `json:"message"`
	RejectedSeatIds []int     `json:"rejected_seat_ids"`
	RequestId       string    `json:"request_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

type CreateHoldRequest struct {
	SeatIdList []int `json:"seat_ids" validate:"required,min=1,max=10,unique,dive,gt=0"`
}

type HoldResponse struct {
	ShowtimeId int       `json:"showtime_id"`
	SeatIds    []int     `json:"seat_ids"`
	ExpiresAt  time.Time `json:"expires_at"`
	HoldTime   int       `json:"hold_time"`
}

type Seat struct {
	Id         int             `json:"id"`
	Row        int             `json:"row"`
	Column     int             `json:"column"`
	Type       string          `json:"type"`
	ExtraPrice decimal.Decimal `json:"extra_price"`
	Status     string          `json:"status"`
}

type SeatRow struct {
	Row   int    `json:"row"`
	Seats []Seat `json:"seats"`
}

type SeatMapResponse struct {
	ShowtimeId   int             `json:"showtime_id"`
	MovieTitle   string          `json:"movie_title"`
	HallName     string          `json:"hall_name"`
	ShowtimeDate string          `json:"showtime_date"`
	BasePrice    decimal.Decimal `json:"base_price"`
	SeatRows     []SeatRow       `json:"seat_rows"`
}

type CheckoutRequest struct {
	Email      string `json:"email" validate:"required,email"`
	SeatIdList []int  `json:"seat_ids" validate:"required,min=1,max=10,unique,dive,gt=0"`
}

type CheckoutSessionResponse struct {
	OrderId     string `json:"order_id"`
	RedirectUrl string `json:"redirect_url"`
}

type SystemInfo struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

type HealthcheckResponse struct {
	Status     string     `json:"status"`
	SystemInfo SystemInfo `json:"system_info"`
}
