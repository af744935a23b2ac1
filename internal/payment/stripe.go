package payment

import (
	"fmt"

	"github.com/cinetix/cinetix/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

type StripePaymentProvider struct {
	failureUrl string
	successUrl string
}

func NewStripePaymentProvider(failureUrl, successUrl string) *StripePaymentProvider {
	return &StripePaymentProvider{
		failureUrl: failureUrl,
		successUrl: successUrl,
	}
}

func (s *StripePaymentProvider) CreateCheckoutSession(
	order *domain.Order,
	seatMap *domain.ShowtimeSeatMap) (*stripe.CheckoutSession, error) {

	seatsByID := make(map[int]domain.ShowtimeSeat, len(seatMap.Seats))
	for _, seat := range seatMap.Seats {
		seatsByID[seat.ID] = seat
	}

	var lineItems []*stripe.CheckoutSessionLineItemParams

	for _, seatID := range order.SeatIDs {
		seat, ok := seatsByID[seatID]
		if !ok {
			return nil, fmt.Errorf("seat %d is not part of showtime %d", seatID, order.ShowtimeID)
		}

		seatLabel := fmt.Sprintf("Row %d Seat %d", seat.Row, seat.Col)

		seatPrice := seatMap.BasePrice.Add(seat.ExtraPrice)
		priceCents := seatPrice.Mul(decimal.NewFromInt(100)).IntPart()

		lineItem := &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount: stripe.Int64(priceCents),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(fmt.Sprintf("🎬 %s - %s", seatMap.MovieTitle, seatLabel)),
					Description: stripe.String(fmt.Sprintf(
						"Hall: %s • Showtime: %s • Seat Type: %s",
						seatMap.HallName,
						seatMap.StartsAt.Format("Jan 2, 2006 15:04"),
						seat.Type,
					)),
				},
			},
			Quantity: stripe.Int64(1),
		}

		lineItems = append(lineItems, lineItem)
	}

	params := &stripe.CheckoutSessionParams{
		LineItems:  lineItems,
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.successUrl),
		CancelURL:  stripe.String(s.failureUrl),
		Metadata: map[string]string{
			"order_id":    order.ID.String(),
			"holder_id":   order.HolderID,
			"showtime_id": fmt.Sprintf("%d", order.ShowtimeID),
		},
		CustomerEmail:     &order.CustomerEmail,
		ClientReferenceID: stripe.String(order.ID.String()),
	}

	return session.New(params)
}
