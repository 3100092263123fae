package types

import (
	"time"

	"github.com/google/uuid"
)

// Role is the closed set of user roles.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents the core user entity in the domain.
type User struct {
	ID            uuid.UUID `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"`
	Name          string    `json:"name" example:"Jane Doe"`
	Email         string    `json:"email" example:"jane@example.com"`
	PasswordHash  *string   `json:"-"` // nil for OAuth-only users
	EmailVerified bool      `json:"emailVerified"`
	Role          Role      `json:"role" example:"USER"`
	Image         *string   `json:"image,omitempty"`
	ImageID       *string   `json:"imageId,omitempty"`
	ShopName      *string   `json:"shopName,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// PublicUser is the subset of user fields returned by the signup endpoint.
type PublicUser struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

// Session is a server-side login session.
type Session struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// AuthSession is a resolved session with its owner.
type AuthSession struct {
	Session Session `json:"session"`
	User    User    `json:"user"`
}

// IssuedSession is returned when a new session is created; Token goes into the cookie.
type IssuedSession struct {
	Token   string
	Session Session
	User    User
}

// ClientMeta describes the caller that triggered a session-issuing operation.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type SignUpInput struct {
	Name            string  `json:"name" example:"Jane Doe"`
	Email           string  `json:"email" example:"jane@example.com"`
	Password        string  `json:"password" example:"Secret123"`
	ConfirmPassword string  `json:"confirmPassword" example:"Secret123"`
	ShopName        *string `json:"shopName,omitempty" example:"Jane's Hardware"`
}

type SignInInput struct {
	Email    string `json:"email" example:"jane@example.com"`
	Password string `json:"password" example:"Secret123"`
}

type EmailInput struct {
	Email string `json:"email" example:"jane@example.com"`
}

type ResetPasswordInput struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword,omitempty"`
}

// OAuthIdentity is the subset of a provider profile needed to link or create a user.
type OAuthIdentity struct {
	Provider          string
	ProviderAccountID string
	Email             string
	Name              string
	AvatarURL         string
}
