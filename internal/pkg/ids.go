package pkg

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionCookie holds the session id shared by the web UI, the JSON API and the websocket.
const SessionCookie = "ttt_session"

// GenerateNewSessionID returns a random session identifier.
func GenerateNewSessionID() string {
	return uuid.NewString()
}

// IsSessionID reports whether id looks like an identifier produced by GenerateNewSessionID.
func IsSessionID(id string) bool {
	return uuid.Validate(id) == nil
}

// NewSessionCookie builds the session cookie. A zero ttl makes it a browser-session cookie.
func NewSessionCookie(id string, ttl time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.Expires = time.Now().Add(ttl)
	}

	return cookie
}
