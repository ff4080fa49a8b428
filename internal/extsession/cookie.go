package extsession

import (
	"net/http"
	"time"

	"connect-service/internal/session"
)

const (
	CookieName = "__Host-external"
)

func cookieOptions() session.CookieOptions {
	return session.CookieOptions{
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetCookie issues the external session cookie to the client.
func SetCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time) {
	session.SetNamed(w, CookieName, sessionID, expiresAt, cookieOptions())
}

// ClearCookie removes the external session cookie from the client.
func ClearCookie(w http.ResponseWriter) {
	session.ClearNamed(w, CookieName, cookieOptions())
}
