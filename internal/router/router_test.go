package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/api/user"
)

func newTestRouter(t *testing.T, pages http.Handler) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cookie := auth.SessionCookie{Name: "easystock.session_token"}

	return SetupRouter(&Config{
		AuthHandler: auth.NewAuthHandler(nil, cookie, auth.HandlerPaths{Landing: "/dashboard", VerifyError: "/auth/verify"}, logger),
		UserHandler: user.NewHandlerImpl(nil, logger),
		RequireSession: func(http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			})
		},
		Guard: func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Guarded", "1")
				next.ServeHTTP(w, r)
			})
		},
		Pages:          pages,
		AllowedOrigins: []string{"http://localhost:3000"},
	})
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestSetupRouter(t *testing.T) {
	h := newTestRouter(t, nil)

	t.Run("Ping", func(t *testing.T) {
		w := serve(h, http.MethodGet, "/ping")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "pong", w.Body.String())
	})

	t.Run("ProfileRequiresSession", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPatch} {
			w := serve(h, method, "/api/users/me")
			assert.Equal(t, http.StatusUnauthorized, w.Code, method)
		}
		w := serve(h, http.MethodPut, "/api/users/me/avatar")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("AdminRoutesRequireSession", func(t *testing.T) {
		w := serve(h, http.MethodPut, "/api/admin/users/role")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("UnknownAPIRouteNotGuarded", func(t *testing.T) {
		w := serve(h, http.MethodGet, "/api/nope")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Empty(t, w.Header().Get("X-Guarded"))
	})

	t.Run("OAuthDisabledByDefault", func(t *testing.T) {
		w := serve(h, http.MethodGet, "/api/auth/oauth/github")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("PagesGoThroughGuard", func(t *testing.T) {
		w := serve(h, http.MethodGet, "/dashboard")
		assert.Equal(t, "1", w.Header().Get("X-Guarded"))
	})

	t.Run("CORSPreflight", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodOptions, "/api/auth/sign-in/email", nil)
		r.Header.Set("Origin", "http://localhost:3000")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)

		assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	})
}

func TestSPAHandler(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "static"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "static", "app.js"), []byte("console.log(1)"), 0o644))

	h := SPAHandler(dir)

	tests := []struct {
		target string
		status int
		body   string
	}{
		{"/", http.StatusOK, "<html>app</html>"},
		{"/dashboard/products", http.StatusOK, "<html>app</html>"},
		{"/static/app.js", http.StatusOK, "console.log(1)"},
		{"/static/missing.js", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			w := serve(h, http.MethodGet, tt.target)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}
