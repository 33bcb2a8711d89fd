package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/param2610-cloud/branch-specific-it-asset-management-lite/internal"
)

// SecureMode decides the cookie Secure attribute: "always", "never", or
// "auto" (secure when the request arrived over HTTPS, directly or through a
// proxy that sets X-Forwarded-Proto).
type SecureMode string

const (
	SecureAuto   SecureMode = "auto"
	SecureAlways SecureMode = "always"
	SecureNever  SecureMode = "never"
)

func (m SecureMode) secure(r *http.Request) bool {
	switch m {
	case SecureAlways:
		return true
	case SecureNever:
		return false
	default:
		return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	}
}

func SetSessionCookie(w http.ResponseWriter, r *http.Request, mode SecureMode, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
		HttpOnly: true,
		Secure:   mode.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, r *http.Request, mode SecureMode) {
	http.SetCookie(w, &http.Cookie{
		Name:     internal.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   mode.secure(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken reads the session cookie; empty when absent.
func SessionToken(r *http.Request) string {
	c, err := r.Cookie(internal.SessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
