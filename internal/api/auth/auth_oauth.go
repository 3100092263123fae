package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"

	"github.com/FACorreiaa/easystock/config"
	"github.com/FACorreiaa/easystock/internal/types"
)

// SetupOAuthProviders registers the configured providers with goth and
// returns their names. Providers without a client id are skipped.
func SetupOAuthProviders(cfg config.OAuthConfig, publicBaseURL string, secureCookie bool) []string {
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   secureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	gothic.Store = store
	gothic.GetProviderName = providerFromPath

	base := strings.TrimRight(publicBaseURL, "/")
	callback := func(name string) string { return base + "/api/auth/oauth/" + name + "/callback" }

	var providers []goth.Provider
	var names []string
	if cfg.Google.ClientID != "" {
		providers = append(providers, google.New(cfg.Google.ClientID, cfg.Google.ClientSecret, callback("google"), "email", "profile"))
		names = append(names, "google")
	}
	if cfg.GitHub.ClientID != "" {
		providers = append(providers, github.New(cfg.GitHub.ClientID, cfg.GitHub.ClientSecret, callback("github"), "user:email"))
		names = append(names, "github")
	}
	goth.UseProviders(providers...)
	return names
}

func providerFromPath(r *http.Request) (string, error) {
	if p := chi.URLParam(r, "provider"); p != "" {
		return p, nil
	}
	return "", errors.New("you must select a provider")
}

// OAuthHandler drives the provider redirect flow and issues a local session on return.
type OAuthHandler struct {
	service    AuthService
	cookie     SessionCookie
	landing    string
	signInPath string
	logger     *slog.Logger
}

func NewOAuthHandler(service AuthService, cookie SessionCookie, landing, signInPath string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		service:    service,
		cookie:     cookie,
		landing:    landing,
		signInPath: signInPath,
		logger:     logger,
	}
}

// Begin godoc
// @Summary      Start OAuth sign in
// @Tags         Auth
// @Param        provider path string true "google or github"
// @Success      307
// @Router       /auth/oauth/{provider} [get]
func (h *OAuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, r)
}

// Callback godoc
// @Summary      OAuth provider callback
// @Tags         Auth
// @Param        provider path string true "google or github"
// @Success      307
// @Router       /auth/oauth/{provider}/callback [get]
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "OAuthCallback"), slog.String("provider", chi.URLParam(r, "provider")))

	gu, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		l.WarnContext(r.Context(), "OAuth exchange failed", slog.Any("error", err))
		http.Redirect(w, r, h.signInPath+"?error=oauth_failed", http.StatusTemporaryRedirect)
		return
	}

	issued, err := h.service.SignInWithOAuth(r.Context(), identityFromGoth(gu), ClientMetaFromRequest(r))
	if err != nil {
		l.ErrorContext(r.Context(), "OAuth sign in failed", slog.Any("error", err))
		http.Redirect(w, r, h.signInPath+"?error=oauth_failed", http.StatusTemporaryRedirect)
		return
	}
	h.cookie.Set(w, issued.Token, issued.Session.ExpiresAt)
	http.Redirect(w, r, h.landing, http.StatusTemporaryRedirect)
}

func identityFromGoth(u goth.User) types.OAuthIdentity {
	name := u.Name
	if name == "" {
		name = u.NickName
	}
	return types.OAuthIdentity{
		Provider:          u.Provider,
		ProviderAccountID: u.UserID,
		Email:             u.Email,
		Name:              name,
		AvatarURL:         u.AvatarURL,
	}
}
