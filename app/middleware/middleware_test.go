package appMiddleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/types"
)

type stubResolver struct {
	session *types.AuthSession
	err     error
	calls   int
}

func (s *stubResolver) ResolveSession(_ context.Context, _ string) (*types.AuthSession, error) {
	s.calls++
	return s.session, s.err
}

var testPolicy = RoutePolicy{
	Protected:        []string{"/dashboard", "/profile", "/settings", "/admin"},
	AuthOnly:         []string{"/sign-in", "/sign-up", "/forgot-password"},
	AdminPrefix:      "/admin",
	ExcludedPrefixes: []string{"/_next", "/api", "/static"},
	Landing:          "/dashboard",
	SignIn:           "/sign-in",
	SignInMessage:    "Please sign in to continue",
}

func sessionWithRole(role types.Role) *types.AuthSession {
	id := uuid.New()
	return &types.AuthSession{
		Session: types.Session{ID: uuid.New(), UserID: id, ExpiresAt: time.Now().Add(time.Hour)},
		User:    types.User{ID: id, Email: "jane@example.com", Role: role, EmailVerified: true},
	}
}

func serveGuard(t *testing.T, resolver SessionResolver, devMode bool, target string) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := NewRouteGuard(testPolicy, resolver, auth.SessionCookie{Name: "easystock.session_token"}, devMode, logger)

	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	})
	w := httptest.NewRecorder()
	guard.Handler(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w, reached
}

func TestRoutePolicy(t *testing.T) {
	tests := []struct {
		path     string
		excluded bool
		class    RouteClass
	}{
		{"/dashboard", false, RouteProtected},
		{"/dashboard/products", false, RouteProtected},
		{"/dashboards", false, RoutePublic},
		{"/sign-in", false, RouteAuthOnly},
		{"/", false, RoutePublic},
		{"/pricing", false, RoutePublic},
		{"/api/auth/get-session", true, RoutePublic},
		{"/_next/static/chunk.js", true, RoutePublic},
		{"/static/logo.png", true, RoutePublic},
		{"/favicon.ico", true, RoutePublic},
		{"/apiary", false, RoutePublic},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.excluded, testPolicy.Excluded(tt.path))
			if !tt.excluded {
				assert.Equal(t, tt.class, testPolicy.Classify(tt.path))
			}
		})
	}
	assert.True(t, testPolicy.IsAdmin("/admin/users"))
	assert.False(t, testPolicy.IsAdmin("/administrator"))
}

func TestRouteGuard(t *testing.T) {
	t.Run("ProtectedWithoutSessionRedirectsToSignIn", func(t *testing.T) {
		w, reached := serveGuard(t, &stubResolver{}, false, "/dashboard")

		assert.False(t, reached)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		loc, err := url.Parse(w.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/sign-in", loc.Path)
		assert.Equal(t, "/dashboard", loc.Query().Get("callbackUrl"))
		assert.Equal(t, "Please sign in to continue", loc.Query().Get("message"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("AuthPageWithSessionRedirectsToLanding", func(t *testing.T) {
		w, reached := serveGuard(t, &stubResolver{session: sessionWithRole(types.RoleUser)}, false, "/sign-in")

		assert.False(t, reached)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})

	t.Run("AuthPageWithSessionHonoursRelativeCallback", func(t *testing.T) {
		w, _ := serveGuard(t, &stubResolver{session: sessionWithRole(types.RoleUser)}, false, "/sign-in?callbackUrl=%2Fprofile")
		assert.Equal(t, "/profile", w.Header().Get("Location"))
	})

	t.Run("AuthPageWithSessionIgnoresOffsiteCallback", func(t *testing.T) {
		w, _ := serveGuard(t, &stubResolver{session: sessionWithRole(types.RoleUser)}, false, "/sign-in?callbackUrl=%2F%2Fevil.example")
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})

	t.Run("AdminWithUserRoleRedirectsToLanding", func(t *testing.T) {
		w, reached := serveGuard(t, &stubResolver{session: sessionWithRole(types.RoleUser)}, false, "/admin")

		assert.False(t, reached)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
	})

	t.Run("AdminWithAdminRolePasses", func(t *testing.T) {
		w, reached := serveGuard(t, &stubResolver{session: sessionWithRole(types.RoleAdmin)}, false, "/admin/users")

		assert.True(t, reached)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("StaticAssetUntouched", func(t *testing.T) {
		resolver := &stubResolver{err: errors.New("must not be called")}
		w, reached := serveGuard(t, resolver, false, "/static/logo.png")

		assert.True(t, reached)
		assert.Equal(t, 0, resolver.calls)
		assert.Empty(t, w.Header().Get("X-Frame-Options"))
	})

	t.Run("PublicPageGetsHardeningHeaders", func(t *testing.T) {
		w, reached := serveGuard(t, &stubResolver{}, false, "/")

		assert.True(t, reached)
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
		assert.Equal(t, "camera=(), microphone=(), geolocation=()", w.Header().Get("Permissions-Policy"))
	})

	t.Run("ErrorFailsClosedOnProtected", func(t *testing.T) {
		w, reached := serveGuard(t, &stubResolver{err: errors.New("db down")}, false, "/settings")

		assert.False(t, reached)
		assert.Equal(t, "/sign-in", w.Header().Get("Location"))
	})

	t.Run("ErrorFailsOpenElsewhere", func(t *testing.T) {
		_, reached := serveGuard(t, &stubResolver{err: errors.New("db down")}, false, "/pricing")
		assert.True(t, reached)
	})

	t.Run("DevModeExposesUserID", func(t *testing.T) {
		s := sessionWithRole(types.RoleUser)
		w, _ := serveGuard(t, &stubResolver{session: s}, true, "/profile")
		assert.Equal(t, s.User.ID.String(), w.Header().Get("X-User-Id"))

		w, _ = serveGuard(t, &stubResolver{session: s}, false, "/profile")
		assert.Empty(t, w.Header().Get("X-User-Id"))
	})
}
