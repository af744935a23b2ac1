package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cinetix/cinetix/api"
	"github.com/cinetix/cinetix/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

func (app *Application) CreateCheckoutSessionHandler(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int) {

	var req api.CheckoutRequest

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

	hold, err := app.holds.Get(r.Context(), holderID, showtimeID)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	if !hold.Covers(req.SeatIdList) {
		app.conflictResponse(w, r, "your hold does not cover the requested seats, please select them again")
		return
	}

	seatMap, err := app.ledger.SeatMapByShowtime(r.Context(), showtimeID)
	if err != nil {
		app.reservationErrorResponse(w, r, err)
		return
	}

	order := &domain.Order{
		ID:            uuid.New(),
		HolderID:      holderID,
		ShowtimeID:    showtimeID,
		SeatIDs:       hold.SeatIDs,
		CustomerEmail: req.Email,
		Amount:        orderAmount(seatMap, hold.SeatIDs),
		Currency:      "USD",
		Status:        domain.OrderStatusPending,
	}

	err = app.orders.Create(r.Context(), order)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	checkoutSession, err := app.paymentProvider.CreateCheckoutSession(order, seatMap)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.orders.SetCheckoutSessionID(r.Context(), order.ID, checkoutSession.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := api.CheckoutSessionResponse{
		OrderId:     order.ID.String(),
		RedirectUrl: checkoutSession.URL,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func orderAmount(seatMap *domain.ShowtimeSeatMap, seatIDs []int) decimal.Decimal {
	selected := make(map[int]bool, len(seatIDs))
	for _, id := range seatIDs {
		selected[id] = true
	}

	total := decimal.Zero
	for _, seat := range seatMap.Seats {
		if selected[seat.ID] {
			total = total.Add(seatMap.BasePrice).Add(seat.ExtraPrice)
		}
	}

	return total
}

// StripeWebhookHandler finalizes orders from gateway callbacks. Callbacks
// are retried by the gateway, so every branch is idempotent: a terminal
// order acknowledges without side effects.
func (app *Application) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	logger := app.contextGetLogger(r)

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 65536))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), app.config.Stripe.WebhookSecret)
	if err != nil {
		logger.Warn("invalid stripe webhook signature", "error", err)
		app.badRequestResponse(w, r, fmt.Errorf("invalid webhook signature"))
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		app.handleCheckoutCompleted(w, r, event)
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		app.handleCheckoutFailed(w, r, event)
	default:
		logger.Info("ignoring stripe event", "type", event.Type)
		w.WriteHeader(http.StatusOK)
	}
}

func (app *Application) handleCheckoutCompleted(w http.ResponseWriter, r *http.Request, event stripe.Event) {
	logger := app.contextGetLogger(r)

	order, err := app.orderFromEvent(r.Context(), event)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			logger.Warn("stripe event references unknown order")
			w.WriteHeader(http.StatusOK)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	if order.Status != domain.OrderStatusPending {
		// A retried callback for an order that already completed; do not
		// re-send the confirmation email.
		w.WriteHeader(http.StatusOK)
		return
	}

	err = app.coordinator.ConfirmBooking(r.Context(), order.HolderID, order.ShowtimeID, order.SeatIDs, order.ID)
	if err != nil {
		if errors.Is(err, domain.ErrHoldExpired) || errors.Is(err, domain.ErrInvalidTransition) {
			// Payment came back after the hold lapsed and the seats moved
			// on. Fail the order so a refund can be issued; retrying the
			// callback cannot succeed.
			logger.Warn("payment completed after hold expiry, failing order", "order_id", order.ID)

			if failErr := app.coordinator.FailBooking(r.Context(), order.ID); failErr != nil {
				app.serverErrorResponse(w, r, failErr)
				return
			}

			app.metrics.bookingsFailed.Add(r.Context(), 1)
			w.WriteHeader(http.StatusOK)
			return
		}

		// Let the gateway retry transient failures.
		app.serverErrorResponse(w, r, err)
		return
	}

	app.metrics.bookingsConfirmed.Add(r.Context(), 1)
	logger.Info("booking confirmed", "order_id", order.ID, "showtime_id", order.ShowtimeID)

	app.background(func() {
		app.sendBookingConfirmation(order)
	})

	w.WriteHeader(http.StatusOK)
}

func (app *Application) handleCheckoutFailed(w http.ResponseWriter, r *http.Request, event stripe.Event) {
	logger := app.contextGetLogger(r)

	order, err := app.orderFromEvent(r.Context(), event)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			w.WriteHeader(http.StatusOK)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	err = app.coordinator.FailBooking(r.Context(), order.ID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.metrics.bookingsFailed.Add(r.Context(), 1)
	logger.Info("booking failed", "order_id", order.ID, "reason", event.Type)

	w.WriteHeader(http.StatusOK)
}

func (app *Application) orderFromEvent(ctx context.Context, event stripe.Event) (*domain.Order, error) {
	var checkoutSession stripe.CheckoutSession

	err := json.Unmarshal(event.Data.Raw, &checkoutSession)
	if err != nil {
		return nil, err
	}

	if orderID, err := uuid.Parse(checkoutSession.Metadata["order_id"]); err == nil {
		return app.orders.GetByID(ctx, orderID)
	}

	return app.orders.GetByCheckoutSessionID(ctx, checkoutSession.ID)
}

func (app *Application) sendBookingConfirmation(order *domain.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	seatMap, err := app.ledger.SeatMapByShowtime(ctx, order.ShowtimeID)
	if err != nil {
		app.logger.Error("failed to load seat map for confirmation email", "order_id", order.ID, "error", err)
		return
	}

	seatLabels := make([]string, 0, len(order.SeatIDs))
	selected := make(map[int]bool, len(order.SeatIDs))
	for _, id := range order.SeatIDs {
		selected[id] = true
	}
	for _, seat := range seatMap.Seats {
		if selected[seat.ID] {
			seatLabels = append(seatLabels, fmt.Sprintf("%c%d", 'A'+seat.Row-1, seat.Col))
		}
	}

	data := map[string]any{
		"MovieTitle": seatMap.MovieTitle,
		"HallName":   seatMap.HallName,
		"Showtime":   seatMap.StartsAt.Format("Mon, 02 Jan 2006 15:04"),
		"Seats":      strings.Join(seatLabels, ", "),
		"Amount":     order.Amount.StringFixed(2),
		"Currency":   order.Currency,
		"OrderID":    order.ID.String(),
	}

	err = app.mailer.Send(order.CustomerEmail, "booking_confirmation.tmpl", data)
	if err != nil {
		app.logger.Error("failed to send confirmation email", "order_id", order.ID, "error", err)
	}
}
