package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const envPrefix = "EASYSTOCK"

type Config struct {
	Mode          string              `mapstructure:"mode"`
	Dotenv        string              `mapstructure:"dotenv"`
	Server        ServerConfig        `mapstructure:"server"`
	Repositories  RepositoriesConfig  `mapstructure:"repositories"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Guard         GuardConfig         `mapstructure:"guard"`
	Mail          MailConfig          `mapstructure:"mail"`
	OAuth         OAuthConfig         `mapstructure:"oauth"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	HTTPPort       string        `mapstructure:"HTTPPort"`
	Timeout        time.Duration `mapstructure:"HTTPTimeout"`
	ReadTimeout    time.Duration `mapstructure:"readTimeout"`
	WriteTimeout   time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout    time.Duration `mapstructure:"idleTimeout"`
	PublicBaseURL  string        `mapstructure:"publicBaseURL"`
	AllowedOrigins []string      `mapstructure:"allowedOrigins"`
	WebDir         string        `mapstructure:"webDir"`
}

type RepositoriesConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Minio    MinioConfig    `mapstructure:"minio"`
}

type PostgresConfig struct {
	Host              string `mapstructure:"host"`
	Password          string `mapstructure:"password"`
	Port              string `mapstructure:"port"`
	Username          string `mapstructure:"username"`
	DB                string `mapstructure:"db"`
	SSLMODE           string `mapstructure:"SSLMODE"`
	MAXCONWAITINGTIME int    `mapstructure:"MAXCONWAITINGTIME"`
	URL               string `mapstructure:"url"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MongoConfig struct {
	URI string `mapstructure:"uri"`
	DB  string `mapstructure:"db"`
}

type MinioConfig struct {
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"accessKey"`
	SecretKey     string `mapstructure:"secretKey"`
	Bucket        string `mapstructure:"bucket"`
	UseSSL        bool   `mapstructure:"useSSL"`
	PublicBaseURL string `mapstructure:"publicBaseURL"`
}

// AuthConfig drives the session/identity service.
type AuthConfig struct {
	Secret                        string        `mapstructure:"secret"`
	Issuer                        string        `mapstructure:"issuer"`
	SessionTTL                    time.Duration `mapstructure:"sessionTTL"`
	VerificationTokenTTL          time.Duration `mapstructure:"verificationTokenTTL"`
	ResetTokenTTL                 time.Duration `mapstructure:"resetTokenTTL"`
	MinPasswordLength             int           `mapstructure:"minPasswordLength"`
	RequirePasswordComplexity     bool          `mapstructure:"requirePasswordComplexity"`
	RequireEmailVerification      bool          `mapstructure:"requireEmailVerification"`
	AutoSignInAfterVerification   bool          `mapstructure:"autoSignInAfterVerification"`
	SendVerificationOnSignIn      bool          `mapstructure:"sendVerificationOnSignIn"`
	RevokeSessionsOnPasswordReset bool          `mapstructure:"revokeSessionsOnPasswordReset"`
	SessionCacheBackend           string        `mapstructure:"sessionCacheBackend"`
	SessionCacheTTL               time.Duration `mapstructure:"sessionCacheTTL"`
	PurgeInterval                 time.Duration `mapstructure:"purgeInterval"`
	Cookie                        CookieConfig  `mapstructure:"cookie"`
	Paths                         AuthPaths     `mapstructure:"paths"`
}

type CookieConfig struct {
	Name   string `mapstructure:"name"`
	Domain string `mapstructure:"domain"`
	Secure bool   `mapstructure:"secure"`
}

// AuthPaths are the UI locations used when building links and redirects.
type AuthPaths struct {
	Landing       string `mapstructure:"landing"`
	SignIn        string `mapstructure:"signIn"`
	VerifyError   string `mapstructure:"verifyError"`
	ResetPassword string `mapstructure:"resetPassword"`
}

type GuardConfig struct {
	ProtectedRoutes  []string `mapstructure:"protectedRoutes"`
	AuthRoutes       []string `mapstructure:"authRoutes"`
	AdminPrefix      string   `mapstructure:"adminPrefix"`
	ExcludedPrefixes []string `mapstructure:"excludedPrefixes"`
	SignInMessage    string   `mapstructure:"signInMessage"`
}

type MailConfig struct {
	Transport string         `mapstructure:"transport"`
	From      string         `mapstructure:"from"`
	FromName  string         `mapstructure:"fromName"`
	Workers   int            `mapstructure:"workers"`
	Timeout   time.Duration  `mapstructure:"timeout"`
	SMTP      SMTPConfig     `mapstructure:"smtp"`
	SendGrid  SendGridConfig `mapstructure:"sendgrid"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SendGridConfig struct {
	APIKey string `mapstructure:"apiKey"`
}

type OAuthConfig struct {
	SessionSecret string         `mapstructure:"sessionSecret"`
	Google        ProviderConfig `mapstructure:"google"`
	GitHub        ProviderConfig `mapstructure:"github"`
}

type ProviderConfig struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
}

type ObservabilityConfig struct {
	ServiceName  string `mapstructure:"serviceName"`
	MetricsPort  string `mapstructure:"metricsPort"`
	OTLPEndpoint string `mapstructure:"otlpEndpoint"`
}

// IsDevelopment reports whether the service runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Mode == "" || c.Mode == "development"
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

// Validate rejects configurations the auth flow cannot run with.
func (c Config) Validate() error {
	if c.Auth.Secret == "" {
		return fmt.Errorf("auth.secret must be set (env %s_AUTH_SECRET)", envPrefix)
	}
	if !c.IsDevelopment() && len(c.Auth.Secret) < 32 {
		return fmt.Errorf("auth.secret must be at least 32 bytes outside development")
	}
	if c.Auth.MinPasswordLength < 1 || c.Auth.MinPasswordLength > 72 {
		return fmt.Errorf("auth.minPasswordLength must be between 1 and 72, got %d", c.Auth.MinPasswordLength)
	}
	if c.Auth.SessionTTL <= 0 || c.Auth.VerificationTokenTTL <= 0 || c.Auth.ResetTokenTTL <= 0 {
		return fmt.Errorf("auth TTLs must be positive")
	}
	if c.Auth.Cookie.Name == "" {
		return fmt.Errorf("auth.cookie.name must be set")
	}
	switch c.Auth.SessionCacheBackend {
	case "", "memory", "redis":
	default:
		return fmt.Errorf("unknown auth.sessionCacheBackend %q", c.Auth.SessionCacheBackend)
	}
	if c.OAuth.Enabled() && c.OAuth.SessionSecret == "" {
		return fmt.Errorf("oauth.sessionSecret must be set when an OAuth provider is configured (env %s_OAUTH_SESSIONSECRET)", envPrefix)
	}
	return nil
}

// Enabled reports whether any OAuth provider has a client id.
func (o OAuthConfig) Enabled() bool {
	return o.Google.ClientID != "" || o.GitHub.ClientID != ""
}
