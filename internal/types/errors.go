package types

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// ValidationError is returned when user input is rejected. Message is shown verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError is returned when a unique resource already exists.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Auth error codes.
const (
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeEmailNotVerified   = "EMAIL_NOT_VERIFIED"
	CodeInvalidCredentials = "INVALID_EMAIL_OR_PASSWORD"
	CodeUnauthorized       = "UNAUTHORIZED"
)

// AuthError is a sign-in or authorization failure carrying its HTTP status.
type AuthError struct {
	Status  int
	Code    string
	Message string
}

func (e *AuthError) Error() string { return e.Message }

var (
	ErrUserNotFound = &AuthError{
		Status:  http.StatusNotFound,
		Code:    CodeUserNotFound,
		Message: "No account found with this email. Please sign up first.",
	}
	ErrEmailNotVerified = &AuthError{
		Status:  http.StatusForbidden,
		Code:    CodeEmailNotVerified,
		Message: "Please verify your email address before signing in.",
	}
	ErrInvalidCredentials = &AuthError{
		Status:  http.StatusUnauthorized,
		Code:    CodeInvalidCredentials,
		Message: "Invalid email or password.",
	}
	ErrUnauthenticated = &AuthError{
		Status:  http.StatusUnauthorized,
		Code:    CodeUnauthorized,
		Message: "Authentication required.",
	}
)

const CodeInvalidToken = "INVALID_TOKEN"

// TokenError is returned when a verification or reset token cannot be used.
type TokenError struct {
	Code    string
	Message string
}

func (e *TokenError) Error() string { return e.Message }

var ErrInvalidToken = &TokenError{Code: CodeInvalidToken, Message: "Invalid or expired token."}

// TransientError wraps an infrastructure failure. Clients only see a generic message.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}
