package appMiddleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/FACorreiaa/easystock/app/observability/metrics"
	"github.com/FACorreiaa/easystock/internal/api"
	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/types"
)

// SessionResolver resolves a session cookie value. A nil session without an
// error means the caller is not signed in.
type SessionResolver interface {
	ResolveSession(ctx context.Context, sessionToken string) (*types.AuthSession, error)
}

var hardeningHeaders = map[string]string{
	"X-Frame-Options":        "DENY",
	"X-Content-Type-Options": "nosniff",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
}

// RouteGuard enforces page access before any page handler runs.
type RouteGuard struct {
	policy   RoutePolicy
	sessions SessionResolver
	cookie   auth.SessionCookie
	devMode  bool
	logger   *slog.Logger
}

func NewRouteGuard(policy RoutePolicy, sessions SessionResolver, cookie auth.SessionCookie, devMode bool, logger *slog.Logger) *RouteGuard {
	return &RouteGuard{
		policy:   policy,
		sessions: sessions,
		cookie:   cookie,
		devMode:  devMode,
		logger:   logger,
	}
}

func (g *RouteGuard) redirect(w http.ResponseWriter, r *http.Request, target, reason string) {
	metrics.Get().GuardRedirectsTotal.Add(r.Context(), 1, metrics.Outcome(reason))
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

func (g *RouteGuard) signInURL(p string) string {
	q := url.Values{}
	q.Set("callbackUrl", p)
	if g.policy.SignInMessage != "" {
		q.Set("message", g.policy.SignInMessage)
	}
	return g.policy.SignIn + "?" + q.Encode()
}

func (g *RouteGuard) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if g.policy.Excluded(p) {
			next.ServeHTTP(w, r)
			return
		}

		for k, v := range hardeningHeaders {
			w.Header().Set(k, v)
		}
		class := g.policy.Classify(p)

		session, err := g.sessions.ResolveSession(r.Context(), g.cookie.Read(r))
		if err != nil {
			g.logger.ErrorContext(r.Context(), "Route guard failed to evaluate session",
				slog.String("path", p), slog.Any("error", err))
			if class == RouteProtected {
				g.redirect(w, r, g.policy.SignIn, "session_error")
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		authenticated := session != nil

		switch {
		case authenticated && class == RouteAuthOnly:
			target := api.SafeRedirectPath(r.URL.Query().Get("callbackUrl"), g.policy.Landing)
			g.redirect(w, r, target, "already_signed_in")
			return
		case !authenticated && class == RouteProtected:
			g.redirect(w, r, g.signInURL(p), "sign_in_required")
			return
		case authenticated && g.policy.IsAdmin(p) && session.User.Role != types.RoleAdmin:
			g.redirect(w, r, g.policy.Landing, "admin_required")
			return
		}

		if authenticated {
			if g.devMode {
				w.Header().Set("X-User-Id", session.User.ID.String())
			}
			r = r.WithContext(auth.WithSession(r.Context(), session))
		}
		next.ServeHTTP(w, r)
	})
}
