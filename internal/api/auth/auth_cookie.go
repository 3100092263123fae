package auth

import (
	"net"
	"net/http"
	"time"

	"github.com/FACorreiaa/easystock/config"
	"github.com/FACorreiaa/easystock/internal/types"
)

// SessionCookie reads and writes the session cookie.
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
}

func SessionCookieFromConfig(cfg config.CookieConfig) SessionCookie {
	return SessionCookie{Name: cfg.Name, Domain: cfg.Domain, Secure: cfg.Secure}
}

// Read returns the cookie value or "" when absent.
func (c SessionCookie) Read(r *http.Request) string {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func (c SessionCookie) Set(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (c SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClientMetaFromRequest extracts the caller's address and user agent.
// RemoteAddr is expected to have been rewritten by chi's RealIP middleware.
func ClientMetaFromRequest(r *http.Request) types.ClientMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}
	return types.ClientMeta{IPAddress: ip, UserAgent: r.UserAgent()}
}
