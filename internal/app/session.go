package app

import "net/http"

type sessionKey string

const (
	SessionKeyGuest = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

// holderID identifies the party holding seats. Guests and logged-in users
// alike are identified by their session token, which survives for the
// session manager's idle timeout and therefore outlives any hold TTL.
func (app *Application) holderID(r *http.Request) string {
	return app.sessionManager.Token(r.Context())
}
