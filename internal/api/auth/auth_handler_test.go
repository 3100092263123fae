package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/FACorreiaa/easystock/internal/api"
	"github.com/FACorreiaa/easystock/internal/types"
)

// MockAuthService is a mock implementation of the AuthService interface
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) SignUp(ctx context.Context, in types.SignUpInput, callbackURL string) (*types.User, error) {
	args := m.Called(ctx, in, callbackURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.User), args.Error(1)
}

func (m *MockAuthService) SignIn(ctx context.Context, in types.SignInInput, meta types.ClientMeta) (*types.IssuedSession, error) {
	args := m.Called(ctx, in, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.IssuedSession), args.Error(1)
}

func (m *MockAuthService) SignOut(ctx context.Context, sessionToken string) error {
	args := m.Called(ctx, sessionToken)
	return args.Error(0)
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockAuthService) ResetPassword(ctx context.Context, in types.ResetPasswordInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockAuthService) SendVerificationEmail(ctx context.Context, email, callbackURL string) error {
	args := m.Called(ctx, email, callbackURL)
	return args.Error(0)
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, token string, meta types.ClientMeta) (*types.User, *types.IssuedSession, error) {
	args := m.Called(ctx, token, meta)
	var user *types.User
	if u := args.Get(0); u != nil {
		user = u.(*types.User)
	}
	var issued *types.IssuedSession
	if s := args.Get(1); s != nil {
		issued = s.(*types.IssuedSession)
	}
	return user, issued, args.Error(2)
}

func (m *MockAuthService) ResolveSession(ctx context.Context, sessionToken string) (*types.AuthSession, error) {
	args := m.Called(ctx, sessionToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.AuthSession), args.Error(1)
}

func (m *MockAuthService) SignInWithOAuth(ctx context.Context, identity types.OAuthIdentity, meta types.ClientMeta) (*types.IssuedSession, error) {
	args := m.Called(ctx, identity, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.IssuedSession), args.Error(1)
}

func (m *MockAuthService) SetUserRole(ctx context.Context, email string, role types.Role) error {
	return m.Called(ctx, email, role).Error(0)
}

func (m *MockAuthService) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

var testCookie = SessionCookie{Name: "easystock.session_token"}

func newTestHandler(service AuthService) *AuthHandler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthHandler(service, testCookie, HandlerPaths{Landing: "/dashboard", VerifyError: "/auth/verify"}, logger)
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func testIssuedSession() *types.IssuedSession {
	userID := uuid.New()
	return &types.IssuedSession{
		Token:   "signed-token",
		Session: types.Session{ID: uuid.New(), UserID: userID, ExpiresAt: time.Now().Add(time.Hour)},
		User:    types.User{ID: userID, Name: "Jane", Email: "jane@example.com", Role: types.RoleUser, EmailVerified: true},
	}
}

func sessionCookieFrom(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie.Name {
			return c
		}
	}
	return nil
}

func TestSignUpLegacyHandler(t *testing.T) {
	input := types.SignUpInput{Name: "Jane", Email: "jane@example.com", Password: "Secret123", ConfirmPassword: "Secret123"}

	t.Run("Created", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		user := &types.User{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Role: types.RoleUser}
		service.On("SignUp", mock.Anything, input, "").Return(user, nil).Once()

		w := httptest.NewRecorder()
		h.SignUpLegacy(w, jsonRequest(t, http.MethodPost, "/api/signup", input))

		assert.Equal(t, http.StatusCreated, w.Code)
		var resp SignUpResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "Account created successfully!", resp.Message)
		assert.Equal(t, user.ID, resp.User.ID)
		assert.Equal(t, types.RoleUser, resp.User.Role)
		assert.NotContains(t, w.Body.String(), "password")
		service.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SignUp", mock.Anything, input, "").
			Return(nil, &types.ConflictError{Message: "An account with this email already exists."}).Once()

		w := httptest.NewRecorder()
		h.SignUpLegacy(w, jsonRequest(t, http.MethodPost, "/api/signup", input))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.JSONEq(t, `{"message":"An account with this email already exists."}`, w.Body.String())
	})

	t.Run("Validation", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SignUp", mock.Anything, mock.Anything, "").
			Return(nil, types.NewValidationError("password", "Password must be at least 8 characters long.")).Once()

		w := httptest.NewRecorder()
		h.SignUpLegacy(w, jsonRequest(t, http.MethodPost, "/api/signup", input))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"message":"Password must be at least 8 characters long."}`, w.Body.String())
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)

		w := httptest.NewRecorder()
		h.SignUpLegacy(w, httptest.NewRequest(http.MethodPost, "/api/signup", bytes.NewBufferString(`{"email":`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"message":"Invalid JSON format in request body"}`, w.Body.String())
		service.AssertNotCalled(t, "SignUp", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InternalErrorIsMasked", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SignUp", mock.Anything, mock.Anything, "").
			Return(nil, types.NewTransientError("create user", errors.New("pq: relation does not exist"))).Once()

		w := httptest.NewRecorder()
		h.SignUpLegacy(w, jsonRequest(t, http.MethodPost, "/api/signup", input))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "relation")
	})
}

func TestSignUpEmailHandler(t *testing.T) {
	req := SignUpRequest{Name: "Jane", Email: "jane@example.com", Password: "Secret123", ConfirmPassword: "Secret123", CallbackURL: "/dashboard"}
	input := types.SignUpInput{Name: "Jane", Email: "jane@example.com", Password: "Secret123", ConfirmPassword: "Secret123"}

	t.Run("Success", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		user := &types.User{ID: uuid.New(), Name: "Jane", Email: "jane@example.com", Role: types.RoleUser}
		service.On("SignUp", mock.Anything, input, "/dashboard").Return(user, nil).Once()

		w := httptest.NewRecorder()
		h.SignUpEmail(w, jsonRequest(t, http.MethodPost, "/api/auth/sign-up/email", req))

		assert.Equal(t, http.StatusOK, w.Code)
		var resp UserResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, user.ID, resp.User.ID)
		assert.Nil(t, sessionCookieFrom(w))
		service.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SignUp", mock.Anything, input, "/dashboard").
			Return(nil, &types.ConflictError{Message: "An account with this email already exists."}).Once()

		w := httptest.NewRecorder()
		h.SignUpEmail(w, jsonRequest(t, http.MethodPost, "/api/auth/sign-up/email", req))

		assert.Equal(t, http.StatusConflict, w.Code)
		var body api.ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, http.StatusConflict, body.Status)
		assert.Equal(t, api.CodeConflict, body.Code)
	})
}

func TestSendVerificationEmailHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SendVerificationEmail", mock.Anything, "jane@example.com", "/dashboard").Return(nil).Once()

		w := httptest.NewRecorder()
		h.SendVerificationEmail(w, jsonRequest(t, http.MethodPost, "/api/auth/send-verification-email",
			SendVerificationRequest{Email: "jane@example.com", CallbackURL: "/dashboard"}))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":true}`, w.Body.String())
	})

	t.Run("InvalidEmail", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SendVerificationEmail", mock.Anything, "nope", "").
			Return(types.NewValidationError("email", "Please enter a valid email address.")).Once()

		w := httptest.NewRecorder()
		h.SendVerificationEmail(w, jsonRequest(t, http.MethodPost, "/api/auth/send-verification-email",
			SendVerificationRequest{Email: "nope"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestSignInEmailHandler(t *testing.T) {
	t.Run("SetsCookie", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		issued := testIssuedSession()
		service.On("SignIn", mock.Anything, types.SignInInput{Email: "jane@example.com", Password: "Secret123"}, mock.AnythingOfType("types.ClientMeta")).
			Return(issued, nil).Once()

		w := httptest.NewRecorder()
		h.SignInEmail(w, jsonRequest(t, http.MethodPost, "/api/auth/sign-in/email", SignInRequest{Email: "jane@example.com", Password: "Secret123"}))

		assert.Equal(t, http.StatusOK, w.Code)
		c := sessionCookieFrom(w)
		require.NotNil(t, c)
		assert.Equal(t, "signed-token", c.Value)
		assert.True(t, c.HttpOnly)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, issued.Session.ID, resp.Session.ID)
	})

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"NotFound", types.ErrUserNotFound, http.StatusNotFound, types.CodeUserNotFound},
		{"Unverified", types.ErrEmailNotVerified, http.StatusForbidden, types.CodeEmailNotVerified},
		{"BadPassword", types.ErrInvalidCredentials, http.StatusUnauthorized, types.CodeInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := new(MockAuthService)
			h := newTestHandler(service)
			service.On("SignIn", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := httptest.NewRecorder()
			h.SignInEmail(w, jsonRequest(t, http.MethodPost, "/api/auth/sign-in/email", SignInRequest{Email: "jane@example.com", Password: "x"}))

			assert.Equal(t, tt.wantStatus, w.Code)
			var body api.ErrorBody
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Nil(t, sessionCookieFrom(w))
		})
	}
}

func TestSignOutHandler(t *testing.T) {
	service := new(MockAuthService)
	h := newTestHandler(service)
	service.On("SignOut", mock.Anything, "signed-token").Return(nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil)
	req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "signed-token"})
	w := httptest.NewRecorder()
	h.SignOut(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	c := sessionCookieFrom(w)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
	service.AssertExpectations(t)
}

func TestForgetPasswordHandler(t *testing.T) {
	service := new(MockAuthService)
	h := newTestHandler(service)
	service.On("RequestPasswordReset", mock.Anything, "ghost@example.com").Return(nil).Once()

	w := httptest.NewRecorder()
	h.ForgetPassword(w, jsonRequest(t, http.MethodPost, "/api/auth/forget-password", ForgetPasswordRequest{Email: "ghost@example.com"}))

	assert.Equal(t, http.StatusOK, w.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Status)
}

func TestResetPasswordHandler(t *testing.T) {
	t.Run("TokenFromQuery", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("ResetPassword", mock.Anything, types.ResetPasswordInput{Token: "tok", NewPassword: "NewSecret1"}).Return(nil).Once()

		w := httptest.NewRecorder()
		h.ResetPassword(w, jsonRequest(t, http.MethodPost, "/api/auth/reset-password?token=tok", types.ResetPasswordInput{NewPassword: "NewSecret1"}))

		assert.Equal(t, http.StatusOK, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("ResetPassword", mock.Anything, mock.Anything).Return(types.ErrInvalidToken).Once()

		w := httptest.NewRecorder()
		h.ResetPassword(w, jsonRequest(t, http.MethodPost, "/api/auth/reset-password", types.ResetPasswordInput{Token: "used", NewPassword: "NewSecret1"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var body api.ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, types.CodeInvalidToken, body.Code)
	})
}

func TestVerifyEmailLinkHandler(t *testing.T) {
	t.Run("RedirectsToCallbackWithSession", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		issued := testIssuedSession()
		service.On("VerifyEmail", mock.Anything, "tok", mock.Anything).Return(&issued.User, issued, nil).Once()

		w := httptest.NewRecorder()
		h.VerifyEmailLink(w, httptest.NewRequest(http.MethodGet, "/api/auth/verify-email?token=tok&callbackURL=%2Fproducts", nil))

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/products", w.Header().Get("Location"))
		c := sessionCookieFrom(w)
		require.NotNil(t, c)
		assert.Equal(t, "signed-token", c.Value)
	})

	t.Run("OffsiteCallbackFallsBackToLanding", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		user := &types.User{ID: uuid.New(), EmailVerified: true}
		service.On("VerifyEmail", mock.Anything, "tok", mock.Anything).Return(user, nil, nil).Once()

		w := httptest.NewRecorder()
		h.VerifyEmailLink(w, httptest.NewRequest(http.MethodGet, "/api/auth/verify-email?token=tok&callbackURL=https%3A%2F%2Fevil.example", nil))

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/dashboard", w.Header().Get("Location"))
		assert.Nil(t, sessionCookieFrom(w))
	})

	t.Run("InvalidTokenRedirectsToErrorPage", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("VerifyEmail", mock.Anything, "used", mock.Anything).Return(nil, nil, types.ErrInvalidToken).Once()

		w := httptest.NewRecorder()
		h.VerifyEmailLink(w, httptest.NewRequest(http.MethodGet, "/api/auth/verify-email?token=used", nil))

		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/auth/verify?error=invalid_token", w.Header().Get("Location"))
	})
}

func TestGetSessionHandler(t *testing.T) {
	t.Run("SignedOut", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("ResolveSession", mock.Anything, "").Return(nil, nil).Once()

		w := httptest.NewRecorder()
		h.GetSession(w, httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "null", w.Body.String())
	})

	t.Run("SignedIn", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		issued := testIssuedSession()
		service.On("ResolveSession", mock.Anything, "signed-token").
			Return(&types.AuthSession{Session: issued.Session, User: issued.User}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil)
		req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "signed-token"})
		w := httptest.NewRecorder()
		h.GetSession(w, req)

		var resp SessionResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, issued.User.Email, resp.User.Email)
	})
}

func TestSetUserRoleHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SetUserRole", mock.Anything, "jane@example.com", types.RoleAdmin).Return(nil).Once()

		w := httptest.NewRecorder()
		h.SetUserRole(w, jsonRequest(t, http.MethodPut, "/api/admin/users/role", SetRoleRequest{Email: "jane@example.com", Role: types.RoleAdmin}))

		assert.Equal(t, http.StatusOK, w.Code)
		service.AssertExpectations(t)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		service := new(MockAuthService)
		h := newTestHandler(service)
		service.On("SetUserRole", mock.Anything, "ghost@example.com", types.RoleAdmin).Return(types.ErrUserNotFound).Once()

		w := httptest.NewRecorder()
		h.SetUserRole(w, jsonRequest(t, http.MethodPut, "/api/admin/users/role", SetRoleRequest{Email: "ghost@example.com", Role: types.RoleAdmin}))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandlerSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	service := new(MockAuthService)
	h := newTestHandler(service)
	service.On("SignOut", mock.Anything, "").Return(nil).Once()
	service.On("ResolveSession", mock.Anything, "").Return(nil, nil).Once()

	h.SignOut(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/auth/sign-out", nil))
	h.GetSession(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/auth/get-session", nil))

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.ElementsMatch(t, []string{"SignOut", "GetSession"}, names)
}

func TestRequireSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetUserIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id.String()))
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		service := new(MockAuthService)
		service.On("ResolveSession", mock.Anything, "").Return(nil, nil).Once()

		w := httptest.NewRecorder()
		RequireSession(service, testCookie, logger)(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/me", nil))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Authenticated", func(t *testing.T) {
		service := new(MockAuthService)
		issued := testIssuedSession()
		service.On("ResolveSession", mock.Anything, "signed-token").
			Return(&types.AuthSession{Session: issued.Session, User: issued.User}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.AddCookie(&http.Cookie{Name: testCookie.Name, Value: "signed-token"})
		w := httptest.NewRecorder()
		RequireSession(service, testCookie, logger)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, issued.User.ID.String(), w.Body.String())
	})

	t.Run("RequireRoleForbidsUsers", func(t *testing.T) {
		issued := testIssuedSession()
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		req = req.WithContext(WithSession(req.Context(), &types.AuthSession{Session: issued.Session, User: issued.User}))
		w := httptest.NewRecorder()
		RequireRole(types.RoleAdmin)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("RequireRoleAllowsAdmins", func(t *testing.T) {
		issued := testIssuedSession()
		issued.User.Role = types.RoleAdmin
		req := httptest.NewRequest(http.MethodGet, "/api/admin", nil)
		req = req.WithContext(WithSession(req.Context(), &types.AuthSession{Session: issued.Session, User: issued.User}))
		w := httptest.NewRecorder()
		RequireRole(types.RoleAdmin)(next).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, issued.User.ID.String(), w.Body.String())
	})
}
