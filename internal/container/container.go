package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/FACorreiaa/easystock/app/audit"
	database "github.com/FACorreiaa/easystock/app/db"
	"github.com/FACorreiaa/easystock/app/mailer"
	appMiddleware "github.com/FACorreiaa/easystock/app/middleware"
	"github.com/FACorreiaa/easystock/app/store"
	"github.com/FACorreiaa/easystock/config"
	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/api/user"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	Cookie         auth.SessionCookie
	AuthService    *auth.AuthServiceImpl
	AuthHandler    *auth.AuthHandler
	OAuthHandler   *auth.OAuthHandler
	OAuthProviders []string
	UserHandler    *user.HandlerImpl
	Guard          *appMiddleware.RouteGuard

	outbox  *mailer.Outbox
	closers []func(context.Context) error
}

// NewContainer initializes and returns a new dependency container.
// Redis, MongoDB and MinIO are optional and only dialed when configured.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *Container, err error) {
	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close(context.Background())
		}
	}()

	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}
	pool, err := database.Init(ctx, dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}
	c.Pool = pool
	c.closers = append(c.closers, func(context.Context) error { pool.Close(); return nil })

	if !database.WaitForDB(ctx, pool, logger) {
		return nil, errors.New("database not ready")
	}

	cache, err := c.sessionCache(ctx)
	if err != nil {
		return nil, err
	}
	recorder, err := c.auditRecorder(ctx)
	if err != nil {
		return nil, err
	}
	avatars, err := c.avatarStore(ctx)
	if err != nil {
		return nil, err
	}

	sender, err := newMailSender(cfg.Mail, logger)
	if err != nil {
		return nil, err
	}
	c.outbox = mailer.NewOutbox(sender, logger, cfg.Mail.Workers, cfg.Mail.Timeout)

	// Initialize repositories
	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	userRepo := user.NewPostgresUserRepo(pool, logger)

	// Initialize services
	c.AuthService = auth.NewAuthService(authRepo, cache, mailer.New(c.outbox), recorder, auth.OptionsFromConfig(cfg), logger)
	var objects user.ObjectStore
	if avatars != nil {
		objects = avatars
	}
	userService := user.NewUserService(userRepo, objects, recorder, logger)

	// Initialize handlers
	c.Cookie = auth.SessionCookieFromConfig(cfg.Auth.Cookie)
	c.AuthHandler = auth.NewAuthHandler(c.AuthService, c.Cookie, auth.HandlerPaths{
		Landing:     cfg.Auth.Paths.Landing,
		VerifyError: cfg.Auth.Paths.VerifyError,
	}, logger)
	c.OAuthProviders = auth.SetupOAuthProviders(cfg.OAuth, cfg.Server.PublicBaseURL, cfg.Auth.Cookie.Secure)
	c.OAuthHandler = auth.NewOAuthHandler(c.AuthService, c.Cookie, cfg.Auth.Paths.Landing, cfg.Auth.Paths.SignIn, logger)
	c.UserHandler = user.NewHandlerImpl(userService, logger)
	c.Guard = appMiddleware.NewRouteGuard(appMiddleware.RoutePolicyFromConfig(cfg), c.AuthService, c.Cookie, cfg.IsDevelopment(), logger)

	logger.Info("Dependency container initialized",
		slog.String("session_cache", cfg.Auth.SessionCacheBackend),
		slog.String("mail_transport", cfg.Mail.Transport),
		slog.Bool("audit", cfg.Repositories.Mongo.URI != ""),
		slog.Bool("avatars", avatars != nil),
		slog.Any("oauth_providers", c.OAuthProviders),
	)
	return c, nil
}

func (c *Container) sessionCache(ctx context.Context) (auth.SessionCache, error) {
	cfg := c.Config
	if cfg.Auth.SessionCacheBackend != "redis" {
		return auth.NewMemorySessionCache(cfg.Auth.SessionCacheTTL), nil
	}
	r := cfg.Repositories.Redis
	rdb, err := store.NewRedisClient(ctx, r.Addr, r.Password, r.DB)
	if err != nil {
		c.Logger.Error("Failed to connect to redis", slog.Any("error", err))
		return nil, err
	}
	c.closers = append(c.closers, func(context.Context) error { return rdb.Close() })
	return auth.NewRedisSessionCache(rdb, cfg.Auth.SessionCacheTTL, c.Logger), nil
}

func (c *Container) auditRecorder(ctx context.Context) (audit.Recorder, error) {
	m := c.Config.Repositories.Mongo
	if m.URI == "" {
		return audit.NopRecorder{}, nil
	}
	db, err := store.NewMongoDatabase(ctx, m.URI, m.DB)
	if err != nil {
		c.Logger.Error("Failed to connect to mongo", slog.Any("error", err))
		return nil, err
	}
	c.closers = append(c.closers, func(ctx context.Context) error { return db.Client().Disconnect(ctx) })
	return audit.NewMongoRecorder(db, c.Logger), nil
}

func (c *Container) avatarStore(ctx context.Context) (*store.MinioStore, error) {
	m := c.Config.Repositories.Minio
	if m.Endpoint == "" {
		return nil, nil
	}
	s, err := store.NewMinioStore(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL, m.PublicBaseURL)
	if err != nil {
		c.Logger.Error("Failed to connect to minio", slog.Any("error", err))
		return nil, err
	}
	return s, nil
}

func newMailSender(cfg config.MailConfig, logger *slog.Logger) (mailer.Sender, error) {
	switch cfg.Transport {
	case "", "log":
		return mailer.NewLogSender(logger), nil
	case "smtp":
		return mailer.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.From, cfg.FromName), nil
	case "sendgrid":
		if cfg.SendGrid.APIKey == "" {
			return nil, errors.New("mail.sendgrid.apiKey must be set for the sendgrid transport")
		}
		return mailer.NewSendGridSender(cfg.SendGrid.APIKey, cfg.From, cfg.FromName), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", cfg.Transport)
	}
}

// Close drains the mail outbox and releases connections in reverse order.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.outbox != nil {
		errs = append(errs, c.outbox.Close())
		c.outbox = nil
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = append(errs, c.closers[i](ctx))
	}
	c.closers = nil
	return errors.Join(errs...)
}
