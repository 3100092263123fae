package auth

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/FACorreiaa/easystock/internal/types"
)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minNameLength = 2

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// PasswordPolicy is the password strength rule set.
type PasswordPolicy struct {
	MinLength         int
	RequireComplexity bool
}

func (p PasswordPolicy) Validate(field, password string) error {
	if len([]rune(password)) < p.MinLength {
		return types.NewValidationError(field, fmt.Sprintf("Password must be at least %d characters long.", p.MinLength))
	}
	if len(password) > MaxPasswordBytes {
		return types.NewValidationError(field, fmt.Sprintf("Password must be at most %d bytes long.", MaxPasswordBytes))
	}
	if !p.RequireComplexity {
		return nil
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	switch {
	case !upper:
		return types.NewValidationError(field, "Password must contain at least one uppercase letter.")
	case !lower:
		return types.NewValidationError(field, "Password must contain at least one lowercase letter.")
	case !digit:
		return types.NewValidationError(field, "Password must contain at least one number.")
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks the address shape. Callers pass the normalized value.
func ValidateEmail(email string) error {
	if email == "" {
		return types.NewValidationError("email", "Email is required.")
	}
	if !emailRegex.MatchString(email) {
		return types.NewValidationError("email", "Invalid email format.")
	}
	return nil
}

// ValidateSignUp checks a sign-up request in the same order the signup form does:
// presence, confirmation, email shape, then password strength.
func ValidateSignUp(in types.SignUpInput, policy PasswordPolicy) error {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" || in.ConfirmPassword == "" {
		return types.NewValidationError("", "All fields (name, email, password, confirmPassword) are required.")
	}
	if len([]rune(name)) < minNameLength {
		return types.NewValidationError("name", fmt.Sprintf("Name must be at least %d characters.", minNameLength))
	}
	if in.Password != in.ConfirmPassword {
		return types.NewValidationError("confirmPassword", "Passwords don't match.")
	}
	if err := ValidateEmail(NormalizeEmail(in.Email)); err != nil {
		return err
	}
	return policy.Validate("password", in.Password)
}
