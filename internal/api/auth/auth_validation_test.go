package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/easystock/internal/types"
)

var testPolicy = PasswordPolicy{MinLength: 8, RequireComplexity: true}

func validationMessage(t *testing.T, err error) string {
	t.Helper()
	var ve *types.ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Message
}

func TestPasswordPolicy(t *testing.T) {
	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		wantMsg  string
	}{
		{"valid", testPolicy, "Secret123", ""},
		{"too short", testPolicy, "Ab1", "Password must be at least 8 characters long."},
		{"no upper", testPolicy, "secret123", "Password must contain at least one uppercase letter."},
		{"no lower", testPolicy, "SECRET123", "Password must contain at least one lowercase letter."},
		{"no digit", testPolicy, "SecretPass", "Password must contain at least one number."},
		{"complexity off", PasswordPolicy{MinLength: 6}, "secret", ""},
		{"length counts runes", PasswordPolicy{MinLength: 4}, "ñañá", ""},
		{"at bcrypt limit", testPolicy, "Aa1" + strings.Repeat("x", 69), ""},
		{"over bcrypt limit", testPolicy, "Aa1" + strings.Repeat("x", 80), "Password must be at most 72 bytes long."},
		{"limit counts bytes", testPolicy, "Aa1" + strings.Repeat("ñ", 35), "Password must be at most 72 bytes long."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate("password", tt.password)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantMsg, validationMessage(t, err))
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("jane@example.com"))
	assert.Equal(t, "Email is required.", validationMessage(t, ValidateEmail("")))
	assert.Equal(t, "Invalid email format.", validationMessage(t, ValidateEmail("jane@example")))
	assert.Equal(t, "Invalid email format.", validationMessage(t, ValidateEmail("jane doe@example.com")))
	assert.Equal(t, "jane@example.com", NormalizeEmail("  Jane@Example.COM "))
}

func TestValidateSignUp(t *testing.T) {
	valid := types.SignUpInput{Name: "Jane", Email: "jane@example.com", Password: "Secret123", ConfirmPassword: "Secret123"}

	tests := []struct {
		name    string
		mutate  func(in *types.SignUpInput)
		wantMsg string
	}{
		{"valid", func(*types.SignUpInput) {}, ""},
		{"missing name", func(in *types.SignUpInput) { in.Name = " " }, "All fields (name, email, password, confirmPassword) are required."},
		{"missing confirm", func(in *types.SignUpInput) { in.ConfirmPassword = "" }, "All fields (name, email, password, confirmPassword) are required."},
		{"short name", func(in *types.SignUpInput) { in.Name = "J" }, "Name must be at least 2 characters."},
		{"mismatch", func(in *types.SignUpInput) { in.ConfirmPassword = "Secret124" }, "Passwords don't match."},
		{"bad email", func(in *types.SignUpInput) { in.Email = "not-an-email" }, "Invalid email format."},
		{"weak password", func(in *types.SignUpInput) { in.Password, in.ConfirmPassword = "short", "short" }, "Password must be at least 8 characters long."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			err := ValidateSignUp(in, testPolicy)
			if tt.wantMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.wantMsg, validationMessage(t, err))
		})
	}
}

func TestOpaqueToken(t *testing.T) {
	token, hash, err := newOpaqueToken()
	require.NoError(t, err)
	assert.Len(t, token, 43)
	assert.Equal(t, hashToken(token), hash)
	assert.NotContains(t, hash, token)

	other, _, err := newOpaqueToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}

func TestSessionSigner(t *testing.T) {
	signer := sessionSigner{secret: []byte("test-secret"), issuer: "easystock"}
	sessionID, userID := uuid.New(), uuid.New()
	now := time.Now()

	t.Run("round trip", func(t *testing.T) {
		token, err := signer.sign(sessionID, userID, now, now.Add(time.Hour))
		require.NoError(t, err)
		got, err := signer.parse(token)
		require.NoError(t, err)
		assert.Equal(t, sessionID, got)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.sign(sessionID, userID, now.Add(-2*time.Hour), now.Add(-time.Hour))
		require.NoError(t, err)
		_, err = signer.parse(token)
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := sessionSigner{secret: []byte("other"), issuer: "easystock"}.sign(sessionID, userID, now, now.Add(time.Hour))
		require.NoError(t, err)
		_, err = signer.parse(token)
		assert.Error(t, err)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := sessionSigner{secret: []byte("test-secret"), issuer: "someone-else"}.sign(sessionID, userID, now, now.Add(time.Hour))
		require.NoError(t, err)
		_, err = signer.parse(token)
		assert.Error(t, err)
	})

	t.Run("alg none", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        sessionID.String(),
				Issuer:    "easystock",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		_, err = signer.parse(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := signer.parse(strings.Repeat("x", 20))
		assert.Error(t, err)
	})
}
