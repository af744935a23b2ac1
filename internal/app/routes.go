package app

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"
)

func (app *Application) Routes() http.Handler {
	r := chi.NewRouter()

	r.NotFound(app.notFoundResponse)

	r.Use(otelchi.Middleware("cinetix-api", otelchi.WithChiRoutes(r)))
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(app.recoverPanic)

	r.Get("/health", app.GetHealth)

	r.Route("/webhook", func(r chi.Router) {
		r.Post("/", app.StripeWebhookHandler)
	})

	r.Route("/showtimes/{showtimeID}", func(r chi.Router) {
		// The seat map and its event stream are public; no session is
		// needed to watch availability.
		r.Get("/seats", app.withShowtimeID(app.GetSeatMapByShowtime))
		r.Get("/seats/events", app.withShowtimeID(app.SeatEventsHandler))

		r.Group(func(r chi.Router) {
			r.Use(app.sessionManager.LoadAndSave)
			r.Use(app.ensureGuestSession)

			r.Post("/hold", app.withShowtimeID(app.CreateHoldHandler))
			r.Delete("/hold", app.withShowtimeID(app.DeleteHoldHandler))
			r.Post("/checkout", app.withShowtimeID(app.CreateCheckoutSessionHandler))
		})
	})

	return r
}

func (app *Application) withShowtimeID(next func(http.ResponseWriter, *http.Request, int)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		showtimeID, err := strconv.Atoi(chi.URLParam(r, "showtimeID"))
		if err != nil || showtimeID < 1 {
			app.badRequestResponse(w, r, fmt.Errorf("showtime ID must be a positive integer"))
			return
		}

		next(w, r, showtimeID)
	}
}
