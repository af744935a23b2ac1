package integration_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []http.Cookie) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, cookie := range cookies {
		req.AddCookie(&cookie)
	}

	return req, nil
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indeterministic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		return k == "timestamp" || k == "request_id" || k == "expires_at"
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func executeSQLFile(t testing.TB, db *pgxpool.Pool, path string) {
	t.Helper()

	sql, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = db.Exec(context.Background(), string(sql))
	require.NoError(t, err)
}

// guestSessionCookies bootstraps a guest session by issuing a request that
// passes through the session middleware, and returns the session cookie.
func (s *BaseSuite) guestSessionCookies(t testing.TB) []http.Cookie {
	t.Helper()

	req, err := prepareRequest(http.MethodDelete, "/showtimes/1/hold", nil, nil, nil)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.app.App.Routes().ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "session_id" {
			return []http.Cookie{{Name: cookie.Name, Value: cookie.Value}}
		}
	}

	t.Fatal("no session cookie issued")
	return nil
}

func signWebhookPayload(payload []byte, secret string) string {
	timestamp := time.Now().Unix()

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", timestamp, payload)

	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func (s *BaseSuite) seatStates(t testing.TB, showtimeID int) map[int]string {
	t.Helper()

	rows, err := s.app.DB.Query(
		context.Background(),
		`SELECT seat_id, state FROM seat_slots WHERE showtime_id = $1`,
		showtimeID,
	)
	require.NoError(t, err)
	defer rows.Close()

	states := make(map[int]string)
	for rows.Next() {
		var seatID int
		var state string
		require.NoError(t, rows.Scan(&seatID, &state))
		states[seatID] = state
	}
	require.NoError(t, rows.Err())

	return states
}

func (s *BaseSuite) resetState(t testing.TB) {
	t.Helper()

	_, err := s.app.DB.Exec(context.Background(), `TRUNCATE orders, seat_slots, seats, showtimes RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	require.NoError(t, s.app.RedisClient.FlushDB(context.Background()).Err())

	s.app.Mailer.Reset()
}
