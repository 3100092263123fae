package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/easystock/internal/api"
	"github.com/FACorreiaa/easystock/internal/types"
)

const signUpSuccessMessage = "Account created successfully!"

// HandlerPaths are the UI locations the handlers redirect to.
type HandlerPaths struct {
	Landing     string
	VerifyError string
}

type AuthHandler struct {
	service AuthService
	cookie  SessionCookie
	paths   HandlerPaths
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, cookie SessionCookie, paths HandlerPaths, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		cookie:  cookie,
		paths:   paths,
		logger:  logger,
	}
}

func startHandlerSpan(r *http.Request, name, route string) (*http.Request, trace.Span) {
	ctx, span := otel.Tracer("AuthHandler").Start(r.Context(), name, trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String(route),
	))
	return r.WithContext(ctx), span
}

// SignUpLegacy godoc
// @Summary      Create account
// @Description  Creates an unverified USER account and sends a verification email.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.SignUpInput true "Sign up form"
// @Success      201 {object} SignUpResponse
// @Failure      400 {object} api.MessageBody "Validation error"
// @Failure      409 {object} api.MessageBody "Email already registered"
// @Failure      500 {object} api.MessageBody "Unexpected error"
// @Router       /signup [post]
func (h *AuthHandler) SignUpLegacy(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "SignUpLegacy", "/api/signup")
	defer span.End()
	l := h.logger.With(slog.String("handler", "SignUpLegacy"))

	var in types.SignUpInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.WriteJSONResponse(w, r, http.StatusBadRequest, api.MessageBody{Message: "Invalid JSON format in request body"})
		return
	}

	user, err := h.service.SignUp(r.Context(), in, "")
	if err != nil {
		api.HandleMessageError(w, r, l, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, SignUpResponse{
		Message: signUpSuccessMessage,
		User:    user.Public(),
	})
}

// SignUpEmail godoc
// @Summary      Sign up with email and password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body SignUpRequest true "Sign up form"
// @Success      200 {object} UserResponse
// @Failure      400 {object} api.ErrorBody
// @Failure      409 {object} api.ErrorBody
// @Router       /auth/sign-up/email [post]
func (h *AuthHandler) SignUpEmail(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "SignUpEmail", "/api/auth/sign-up/email")
	defer span.End()

	var req SignUpRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}

	user, err := h.service.SignUp(r.Context(), types.SignUpInput{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		ShopName:        req.ShopName,
	}, req.CallbackURL)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, UserResponse{User: *user})
}

// SignInEmail godoc
// @Summary      Sign in with email and password
// @Description  Issues a session cookie. Unverified accounts are rejected with 403.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body SignInRequest true "Credentials"
// @Success      200 {object} SessionResponse
// @Failure      401 {object} api.ErrorBody "Invalid email or password"
// @Failure      403 {object} api.ErrorBody "Email not verified"
// @Failure      404 {object} api.ErrorBody "No such user"
// @Router       /auth/sign-in/email [post]
func (h *AuthHandler) SignInEmail(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "SignInEmail", "/api/auth/sign-in/email")
	defer span.End()

	var req SignInRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}

	issued, err := h.service.SignIn(r.Context(), types.SignInInput{Email: req.Email, Password: req.Password}, ClientMetaFromRequest(r))
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	h.cookie.Set(w, issued.Token, issued.Session.ExpiresAt)
	api.WriteJSONResponse(w, r, http.StatusOK, SessionResponse{Session: issued.Session, User: issued.User})
}

// SignOut godoc
// @Summary      Sign out
// @Description  Deletes the current session. Succeeds when already signed out.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} StatusResponse
// @Router       /auth/sign-out [post]
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "SignOut", "/api/auth/sign-out")
	defer span.End()

	err := h.service.SignOut(r.Context(), h.cookie.Read(r))
	h.cookie.Clear(w)
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{Status: true})
}

// ForgetPassword godoc
// @Summary      Request a password reset email
// @Description  Always succeeds for well-formed addresses.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body ForgetPasswordRequest true "Email"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} api.ErrorBody
// @Router       /auth/forget-password [post]
func (h *AuthHandler) ForgetPassword(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "ForgetPassword", "/api/auth/forget-password")
	defer span.End()

	var req ForgetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}
	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{
		Status:  true,
		Message: "If this email exists in our system, check your email for the reset link.",
	})
}

// ResetPassword godoc
// @Summary      Reset password with a token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.ResetPasswordInput true "Token and new password"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} api.ErrorBody "Weak password or invalid token"
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "ResetPassword", "/api/auth/reset-password")
	defer span.End()

	var in types.ResetPasswordInput
	if err := api.DecodeJSONBody(w, r, &in); err != nil {
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}
	if in.Token == "" {
		in.Token = r.URL.Query().Get("token")
	}
	if err := h.service.ResetPassword(r.Context(), in); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{Status: true})
}

// SendVerificationEmail godoc
// @Summary      Resend the verification email
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body SendVerificationRequest true "Email"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} api.ErrorBody
// @Router       /auth/send-verification-email [post]
func (h *AuthHandler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "SendVerificationEmail", "/api/auth/send-verification-email")
	defer span.End()

	var req SendVerificationRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}
	if err := h.service.SendVerificationEmail(r.Context(), req.Email, req.CallbackURL); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{Status: true})
}

// VerifyEmailLink godoc
// @Summary      Verify email from the emailed link
// @Description  Redirects to callbackURL on success or to the verify page with an error code.
// @Tags         Auth
// @Param        token query string true "Verification token"
// @Param        callbackURL query string false "Relative path to redirect to"
// @Success      307
// @Router       /auth/verify-email [get]
func (h *AuthHandler) VerifyEmailLink(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "VerifyEmailLink", "/api/auth/verify-email")
	defer span.End()

	q := r.URL.Query()
	_, issued, err := h.service.VerifyEmail(r.Context(), q.Get("token"), ClientMetaFromRequest(r))
	if err != nil {
		code := "internal_error"
		var tokenErr *types.TokenError
		if errors.As(err, &tokenErr) {
			code = "invalid_token"
		} else {
			h.logger.ErrorContext(r.Context(), "Email verification failed", slog.Any("error", err))
		}
		http.Redirect(w, r, h.paths.VerifyError+"?error="+url.QueryEscape(code), http.StatusTemporaryRedirect)
		return
	}
	if issued != nil {
		h.cookie.Set(w, issued.Token, issued.Session.ExpiresAt)
	}
	http.Redirect(w, r, api.SafeRedirectPath(q.Get("callbackURL"), h.paths.Landing), http.StatusTemporaryRedirect)
}

// VerifyEmail godoc
// @Summary      Verify email with a token
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body VerifyEmailRequest true "Token"
// @Success      200 {object} UserResponse
// @Failure      400 {object} api.ErrorBody "Invalid or expired token"
// @Router       /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "VerifyEmail", "/api/auth/verify-email")
	defer span.End()

	var req VerifyEmailRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}
	user, issued, err := h.service.VerifyEmail(r.Context(), req.Token, ClientMetaFromRequest(r))
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	if issued != nil {
		h.cookie.Set(w, issued.Token, issued.Session.ExpiresAt)
	}
	api.WriteJSONResponse(w, r, http.StatusOK, UserResponse{User: *user})
}

// GetSession godoc
// @Summary      Current session
// @Description  Returns the session and user, or null when signed out.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} SessionResponse
// @Router       /auth/get-session [get]
func (h *AuthHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "GetSession", "/api/auth/get-session")
	defer span.End()

	session, err := h.service.ResolveSession(r.Context(), h.cookie.Read(r))
	if err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	if session == nil {
		api.WriteJSONResponse(w, r, http.StatusOK, nil)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, SessionResponse{Session: session.Session, User: session.User})
}

// SetUserRole godoc
// @Summary      Change a user's role
// @Description  Admin only. Signed-in sessions of the user pick up the new role within the session cache TTL.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        body body SetRoleRequest true "Email and role"
// @Success      200 {object} StatusResponse
// @Failure      400 {object} api.ErrorBody
// @Failure      403 {object} api.ErrorBody "Not an admin"
// @Failure      404 {object} api.ErrorBody "No such user"
// @Router       /admin/users/role [put]
func (h *AuthHandler) SetUserRole(w http.ResponseWriter, r *http.Request) {
	r, span := startHandlerSpan(r, "SetUserRole", "/api/admin/users/role")
	defer span.End()

	var req SetRoleRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.CodedErrorResponse(w, r, http.StatusBadRequest, api.CodeValidation, err.Error())
		return
	}
	if err := h.service.SetUserRole(r.Context(), req.Email, req.Role); err != nil {
		api.HandleError(w, r, h.logger, err)
		return
	}
	if admin, ok := SessionFromContext(r.Context()); ok {
		h.logger.InfoContext(r.Context(), "User role changed",
			slog.String("by", admin.User.ID.String()), slog.String("email", req.Email), slog.String("role", string(req.Role)))
	}
	api.WriteJSONResponse(w, r, http.StatusOK, StatusResponse{Status: true})
}
