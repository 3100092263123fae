package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/easystock/config"
	"github.com/FACorreiaa/easystock/internal/types"
)

// Claims is the payload of the signed session cookie. ID holds the session id.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// Options configures the session/identity service.
type Options struct {
	Secret                        []byte
	Issuer                        string
	SessionTTL                    time.Duration
	VerificationTokenTTL          time.Duration
	ResetTokenTTL                 time.Duration
	PublicBaseURL                 string
	LandingPath                   string
	ResetPasswordPath             string
	RequireEmailVerification      bool
	AutoSignInAfterVerification   bool
	SendVerificationOnSignIn      bool
	RevokeSessionsOnPasswordReset bool
	Password                      PasswordPolicy
}

func OptionsFromConfig(cfg *config.Config) Options {
	a := cfg.Auth
	return Options{
		Secret:                        []byte(a.Secret),
		Issuer:                        a.Issuer,
		SessionTTL:                    a.SessionTTL,
		VerificationTokenTTL:          a.VerificationTokenTTL,
		ResetTokenTTL:                 a.ResetTokenTTL,
		PublicBaseURL:                 cfg.Server.PublicBaseURL,
		LandingPath:                   a.Paths.Landing,
		ResetPasswordPath:             a.Paths.ResetPassword,
		RequireEmailVerification:      a.RequireEmailVerification,
		AutoSignInAfterVerification:   a.AutoSignInAfterVerification,
		SendVerificationOnSignIn:      a.SendVerificationOnSignIn,
		RevokeSessionsOnPasswordReset: a.RevokeSessionsOnPasswordReset,
		Password: PasswordPolicy{
			MinLength:         a.MinPasswordLength,
			RequireComplexity: a.RequirePasswordComplexity,
		},
	}
}

// SignUpResponse is returned by POST /api/signup.
type SignUpResponse struct {
	Message string           `json:"message" example:"Account created successfully!"`
	User    types.PublicUser `json:"user"`
}

// UserResponse wraps a user for the /api/auth endpoints.
type UserResponse struct {
	User types.User `json:"user"`
}

// SessionResponse is the body of sign-in and get-session.
type SessionResponse struct {
	Session types.Session `json:"session"`
	User    types.User    `json:"user"`
}

// StatusResponse is a plain acknowledgement.
type StatusResponse struct {
	Status  bool   `json:"status" example:"true"`
	Message string `json:"message,omitempty"`
}

type SendVerificationRequest struct {
	Email       string `json:"email" example:"jane@example.com"`
	CallbackURL string `json:"callbackURL,omitempty" example:"/dashboard"`
}

type ForgetPasswordRequest struct {
	Email      string `json:"email" example:"jane@example.com"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

type VerifyEmailRequest struct {
	Token string `json:"token"`
}

type SignInRequest struct {
	Email       string `json:"email" example:"jane@example.com"`
	Password    string `json:"password" example:"Secret123"`
	CallbackURL string `json:"callbackURL,omitempty"`
	RememberMe  *bool  `json:"rememberMe,omitempty"`
}

type SignUpRequest struct {
	Name            string  `json:"name" example:"Jane Doe"`
	Email           string  `json:"email" example:"jane@example.com"`
	Password        string  `json:"password" example:"Secret123"`
	ConfirmPassword string  `json:"confirmPassword" example:"Secret123"`
	ShopName        *string `json:"shopName,omitempty"`
	CallbackURL     string  `json:"callbackURL,omitempty"`
}

type SetRoleRequest struct {
	Email string     `json:"email" example:"jane@example.com"`
	Role  types.Role `json:"role" example:"ADMIN"`
}
