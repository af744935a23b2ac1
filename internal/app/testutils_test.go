package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/cinetix/cinetix/api"
	"github.com/cinetix/cinetix/internal/mailer"
	"github.com/cinetix/cinetix/internal/pubsub"
	"github.com/cinetix/cinetix/internal/reservation"
	"github.com/cinetix/cinetix/internal/sweeper"
	appvalidator "github.com/cinetix/cinetix/internal/validator"
)

func newTestApplication(opts ...func(*Application)) *Application {
	app := &Application{
		config: Config{
			Env: "test",
			Reservation: ReservationConfig{
				HoldTTL:       10 * time.Minute,
				OrderTimeout:  30 * time.Minute,
				SweepInterval: time.Minute,
			},
		},
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		validator:      appvalidator.NewValidator(),
		sessionManager: scs.New(),
		broker:         pubsub.NewMemoryBroker(),
		metrics:        newMetrics(),
		mailer:         mailer.NewMockMailer(),
	}

	for _, opt := range opts {
		opt(app)
	}

	app.coordinator = reservation.NewCoordinator(
		app.ledger,
		app.holds,
		app.orders,
		app.broker,
		app.logger,
		app.config.Reservation.HoldTTL,
	)

	app.sweeper = sweeper.New(
		app.ledger,
		app.orders,
		app.coordinator,
		app.logger,
		app.config.Reservation.SweepInterval,
		app.config.Reservation.OrderTimeout,
	)

	return app
}

// setupGuestSession loads a fresh session into the request context and
// commits it, so holderID returns a stable token.
func setupGuestSession(t *testing.T, app *Application, r *http.Request) (*http.Request, string) {
	t.Helper()

	ctx, err := app.sessionManager.Load(r.Context(), "")
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}

	app.sessionManager.Put(ctx, SessionKeyGuest.String(), true)

	token, _, err := app.sessionManager.Commit(ctx)
	if err != nil {
		t.Fatalf("Failed to commit session: %v", err)
	}

	if token == "" {
		t.Fatal("expected a non-empty session token")
	}

	return r.WithContext(ctx), token
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	t.Helper()

	jsonData, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(method, url, bytes.NewReader(jsonData))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if wantStatus >= 200 && wantStatus < 300 {
		return
	}

	switch wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp api.ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", wantErrMessage)
		}

	default:
		var errorResp api.ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if wantErrMessage != "" && errorResp.Message != wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, wantErrMessage)
		}
	}
}
