package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/FACorreiaa/easystock/docs"
	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/api/user"
	"github.com/FACorreiaa/easystock/internal/types"
)

// Config contains dependencies needed for the router setup.
// Guard wraps every page request; API routes are not guarded.
type Config struct {
	AuthHandler    *auth.AuthHandler
	OAuthHandler   *auth.OAuthHandler
	OAuthEnabled   bool
	UserHandler    *user.HandlerImpl
	RequireSession func(http.Handler) http.Handler
	Guard          func(http.Handler) http.Handler
	Pages          http.Handler
	AllowedOrigins []string
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (like logger, requestID, recoverer) are expected
// to be applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "X-User-Id"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any major browsers
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", cfg.AuthHandler.SignUpLegacy)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/sign-up/email", cfg.AuthHandler.SignUpEmail)
			r.Post("/sign-in/email", cfg.AuthHandler.SignInEmail)
			r.Post("/sign-out", cfg.AuthHandler.SignOut)
			r.Post("/forget-password", cfg.AuthHandler.ForgetPassword)
			r.Post("/reset-password", cfg.AuthHandler.ResetPassword)
			r.Post("/send-verification-email", cfg.AuthHandler.SendVerificationEmail)
			r.Get("/verify-email", cfg.AuthHandler.VerifyEmailLink)
			r.Post("/verify-email", cfg.AuthHandler.VerifyEmail)
			r.Get("/get-session", cfg.AuthHandler.GetSession)

			if cfg.OAuthEnabled && cfg.OAuthHandler != nil {
				r.Get("/oauth/{provider}", cfg.OAuthHandler.Begin)
				r.Get("/oauth/{provider}/callback", cfg.OAuthHandler.Callback)
			}
		})

		// --- Protected Routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.RequireSession)

			r.Get("/users/me", cfg.UserHandler.GetUserProfile)
			r.Patch("/users/me", cfg.UserHandler.UpdateUserProfile)
			r.Put("/users/me/avatar", cfg.UserHandler.UploadAvatar)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(cfg.RequireSession)
			r.Use(auth.RequireRole(types.RoleAdmin))

			r.Put("/users/role", cfg.AuthHandler.SetUserRole)
		})

		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		})
	})

	pages := cfg.Pages
	if pages == nil {
		pages = http.NotFoundHandler()
	}
	if cfg.Guard != nil {
		pages = cfg.Guard(pages)
	}
	r.Handle("/*", pages)

	return r
}
