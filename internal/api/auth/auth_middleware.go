package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/easystock/internal/api"
	"github.com/FACorreiaa/easystock/internal/types"
)

type contextKey string

const sessionKeyCtx contextKey = "authSession"

// WithSession stores a resolved session on the context.
func WithSession(ctx context.Context, s *types.AuthSession) context.Context {
	return context.WithValue(ctx, sessionKeyCtx, s)
}

// SessionFromContext returns the session stored by RequireSession or the route guard.
func SessionFromContext(ctx context.Context) (*types.AuthSession, bool) {
	s, ok := ctx.Value(sessionKeyCtx).(*types.AuthSession)
	return s, ok && s != nil
}

// GetUserIDFromContext returns the id of the authenticated user.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	s, ok := SessionFromContext(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return s.User.ID, true
}

// RequireSession rejects API requests without a live session with 401.
func RequireSession(service AuthService, cookie SessionCookie, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if s, ok := SessionFromContext(ctx); ok && s != nil {
				next.ServeHTTP(w, r)
				return
			}

			session, err := service.ResolveSession(ctx, cookie.Read(r))
			if err != nil {
				api.HandleError(w, r, logger.With(slog.String("middleware", "RequireSession")), err)
				return
			}
			if session == nil {
				api.CodedErrorResponse(w, r, http.StatusUnauthorized, types.CodeUnauthorized, types.ErrUnauthenticated.Message)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(ctx, session)))
		})
	}
}

// RequireRole must run after RequireSession.
func RequireRole(role types.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := SessionFromContext(r.Context())
			if !ok || s.User.Role != role {
				api.CodedErrorResponse(w, r, http.StatusForbidden, "FORBIDDEN", "You do not have access to this resource.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
