package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinetix/cinetix/api"
	"github.com/cinetix/cinetix/internal/domain"
)

func (app *Application) GetSeatMapByShowtime(
	w http.ResponseWriter,
	r *http.Request,
	showtimeID int) {

	seatMap, err := app.ledger.SeatMapByShowtime(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}
		app.serverErrorResponse(w, r, err)
		return
	}

	// The ledger keeps a seat in held until the sweeper reconciles an
	// expired hold, so overlay the live locks: a held seat with no live
	// lock is effectively available again.
	locked, err := app.holds.LockedSeats(r.Context(), showtimeID)
	if err != nil {
		app.serviceUnavailableResponse(w, r, err)
		return
	}

	resp := toSeatMapResponse(seatMap, locked)

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func toSeatMapResponse(seatMap *domain.ShowtimeSeatMap, lockedSeatIDs []int) api.SeatMapResponse {
	locked := make(map[int]bool, len(lockedSeatIDs))
	for _, id := range lockedSeatIDs {
		locked[id] = true
	}

	return api.SeatMapResponse{
		ShowtimeId:   seatMap.ShowtimeID,
		MovieTitle:   seatMap.MovieTitle,
		HallName:     seatMap.HallName,
		ShowtimeDate: seatMap.StartsAt.Format(time.RFC3339),
		BasePrice:    seatMap.BasePrice,
		SeatRows:     toSeatRows(seatMap.Seats, locked),
	}
}

func toSeatRows(seats []domain.ShowtimeSeat, locked map[int]bool) []api.SeatRow {
	seatRows := make([]api.SeatRow, 0)

	for _, seat := range seats {
		if len(seatRows) == 0 || seatRows[len(seatRows)-1].Row != seat.Row {
			seatRows = append(seatRows, api.SeatRow{Row: seat.Row, Seats: make([]api.Seat, 0)})
		}

		row := &seatRows[len(seatRows)-1]
		row.Seats = append(row.Seats, api.Seat{
			Id:         seat.ID,
			Row:        seat.Row,
			Column:     seat.Col,
			Type:       seat.Type,
			ExtraPrice: seat.ExtraPrice,
			Status:     string(effectiveState(seat, locked)),
		})
	}

	return seatRows
}

func effectiveState(seat domain.ShowtimeSeat, locked map[int]bool) domain.SeatState {
	if seat.State == domain.SeatHeld && !locked[seat.ID] {
		return domain.SeatAvailable
	}
	return seat.State
}
