package config

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func embeddedDefaults(t *testing.T) Config {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yml")
	require.NoError(t, v.ReadConfig(bytes.NewReader(embeddedConfig)))
	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))
	return cfg
}

func TestEmbeddedConfig(t *testing.T) {
	cfg := embeddedDefaults(t)

	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 8, cfg.Auth.MinPasswordLength)
	assert.Equal(t, 720*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, "easystock.session_token", cfg.Auth.Cookie.Name)
	assert.Equal(t, "/dashboard", cfg.Auth.Paths.Landing)
	assert.Contains(t, cfg.Guard.ProtectedRoutes, "/admin")
	assert.Equal(t, "log", cfg.Mail.Transport)
}

func TestValidateAcceptsOAuthWithSessionSecret(t *testing.T) {
	cfg := embeddedDefaults(t)
	cfg.OAuth.Google.ClientID = "client"
	cfg.OAuth.SessionSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"MissingSecret", func(c *Config) { c.Auth.Secret = "" }, "auth.secret must be set"},
		{"ShortSecretInProduction", func(c *Config) { c.Mode = "production"; c.Auth.Secret = "short" }, "at least 32 bytes"},
		{"ZeroPasswordLength", func(c *Config) { c.Auth.MinPasswordLength = 0 }, "minPasswordLength"},
		{"ZeroTTL", func(c *Config) { c.Auth.ResetTokenTTL = 0 }, "TTLs must be positive"},
		{"MissingCookieName", func(c *Config) { c.Auth.Cookie.Name = "" }, "cookie.name"},
		{"UnknownCacheBackend", func(c *Config) { c.Auth.SessionCacheBackend = "memcached" }, "sessionCacheBackend"},
		{"PasswordLengthBeyondBcrypt", func(c *Config) { c.Auth.MinPasswordLength = 80 }, "minPasswordLength"},
		{"OAuthWithoutSessionSecret", func(c *Config) { c.OAuth.GitHub.ClientID = "client" }, "oauth.sessionSecret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := embeddedDefaults(t)
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}
}
