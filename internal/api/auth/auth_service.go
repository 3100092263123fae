package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/singleflight"

	"github.com/FACorreiaa/easystock/app/audit"
	"github.com/FACorreiaa/easystock/app/observability/metrics"
	"github.com/FACorreiaa/easystock/internal/api"
	"github.com/FACorreiaa/easystock/internal/types"
)

// BcryptCost matches the cost used for existing EasyStock hashes.
const BcryptCost = 10

// Mailer sends the transactional emails of the auth flow.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, link string) error
	SendPasswordResetEmail(ctx context.Context, to, name, link string) error
}

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthService is the session/identity service: the only component that
// validates credentials, issues sessions and drives the verification and
// reset state machines.
type AuthService interface {
	SignUp(ctx context.Context, in types.SignUpInput, callbackURL string) (*types.User, error)
	SignIn(ctx context.Context, in types.SignInInput, meta types.ClientMeta) (*types.IssuedSession, error)
	SignOut(ctx context.Context, sessionToken string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in types.ResetPasswordInput) error
	SendVerificationEmail(ctx context.Context, email, callbackURL string) error
	// VerifyEmail returns the verified user and, when auto sign-in is enabled, a new session.
	VerifyEmail(ctx context.Context, token string, meta types.ClientMeta) (*types.User, *types.IssuedSession, error)
	// ResolveSession returns nil without error when the token does not name a live session.
	ResolveSession(ctx context.Context, sessionToken string) (*types.AuthSession, error)
	SignInWithOAuth(ctx context.Context, identity types.OAuthIdentity, meta types.ClientMeta) (*types.IssuedSession, error)
	SetUserRole(ctx context.Context, email string, role types.Role) error
	PurgeExpired(ctx context.Context) (int64, error)
}

type AuthServiceImpl struct {
	logger  *slog.Logger
	repo    AuthRepo
	cache   SessionCache
	mailer  Mailer
	audit   audit.Recorder
	opts    Options
	signer  sessionSigner
	lookups singleflight.Group
	now     func() time.Time
}

func NewAuthService(repo AuthRepo, cache SessionCache, mailer Mailer, recorder audit.Recorder, opts Options, logger *slog.Logger) *AuthServiceImpl {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &AuthServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache,
		mailer: mailer,
		audit:  recorder,
		opts:   opts,
		signer: sessionSigner{secret: opts.Secret, issuer: opts.Issuer},
		now:    time.Now,
	}
}

func tracer() trace.Tracer {
	return otel.Tracer("AuthService")
}

// endSpan records the outcome of a service call and ends its span.
func endSpan(span trace.Span, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
}

func (s *AuthServiceImpl) SignUp(ctx context.Context, in types.SignUpInput, callbackURL string) (user *types.User, err error) {
	ctx, span := tracer().Start(ctx, "SignUp")
	defer func() { endSpan(span, err) }()
	l := s.logger.With(slog.String("method", "SignUp"))

	m := metrics.Get()
	if err = ValidateSignUp(in, s.opts.Password); err != nil {
		m.SignUpsTotal.Add(ctx, 1, metrics.Outcome("invalid"))
		return nil, err
	}
	email := NormalizeEmail(in.Email)

	_, err = s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		m.SignUpsTotal.Add(ctx, 1, metrics.Outcome("conflict"))
		return nil, &types.ConflictError{Message: "An account with this email already exists."}
	case !errors.Is(err, types.ErrNotFound):
		l.ErrorContext(ctx, "Failed to check existing user", slog.Any("error", err))
		return nil, types.NewTransientError("check existing user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), BcryptCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return nil, types.NewTransientError("hash password", err)
	}
	hashed := string(hash)

	var shopName *string
	if in.ShopName != nil && strings.TrimSpace(*in.ShopName) != "" {
		trimmed := strings.TrimSpace(*in.ShopName)
		shopName = &trimmed
	}

	user = &types.User{
		ID:            uuid.New(),
		Name:          strings.TrimSpace(in.Name),
		Email:         email,
		PasswordHash:  &hashed,
		EmailVerified: false,
		Role:          types.RoleUser,
		ShopName:      shopName,
	}
	if err = s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, types.ErrConflict) {
			m.SignUpsTotal.Add(ctx, 1, metrics.Outcome("conflict"))
			return nil, &types.ConflictError{Message: "An account with this email already exists."}
		}
		l.ErrorContext(ctx, "Failed to create user", slog.Any("error", err))
		return nil, types.NewTransientError("create user", err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	m.SignUpsTotal.Add(ctx, 1, metrics.Outcome("success"))
	s.audit.Record(ctx, audit.Event{Type: audit.EventSignUp, UserID: user.ID.String(), Email: email})
	l.InfoContext(ctx, "User signed up", slog.String("userID", user.ID.String()))

	// The account exists from here on; a failed verification mail only gets logged.
	if mailErr := s.issueVerification(ctx, user.Email, user.Name, callbackURL); mailErr != nil {
		l.ErrorContext(ctx, "Failed to send verification email after sign up", slog.Any("error", mailErr))
	}
	user.PasswordHash = nil
	return user, nil
}

func (s *AuthServiceImpl) SignIn(ctx context.Context, in types.SignInInput, meta types.ClientMeta) (issued *types.IssuedSession, err error) {
	ctx, span := tracer().Start(ctx, "SignIn")
	defer func() { endSpan(span, err) }()
	l := s.logger.With(slog.String("method", "SignIn"))
	m := metrics.Get()

	email := NormalizeEmail(in.Email)
	if err = ValidateEmail(email); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, types.NewValidationError("password", "Password is required.")
	}

	fail := func(authErr *types.AuthError, userID string) (*types.IssuedSession, error) {
		m.SignInsTotal.Add(ctx, 1, metrics.Outcome(strings.ToLower(authErr.Code)))
		s.audit.Record(ctx, audit.Event{
			Type: audit.EventSignInFailed, UserID: userID, Email: email, Reason: authErr.Code,
			IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
		})
		return nil, authErr
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fail(types.ErrUserNotFound, "")
		}
		l.ErrorContext(ctx, "Failed to fetch user", slog.Any("error", err))
		return nil, types.NewTransientError("fetch user", err)
	}

	// Unverified accounts are rejected before the password is looked at.
	if s.opts.RequireEmailVerification && !user.EmailVerified {
		if s.opts.SendVerificationOnSignIn {
			if mailErr := s.issueVerification(ctx, user.Email, user.Name, ""); mailErr != nil {
				l.ErrorContext(ctx, "Failed to resend verification email on sign in", slog.Any("error", mailErr))
			}
		}
		return fail(types.ErrEmailNotVerified, user.ID.String())
	}

	if user.PasswordHash == nil || bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(in.Password)) != nil {
		return fail(types.ErrInvalidCredentials, user.ID.String())
	}

	issued, err = s.issueSession(ctx, user, meta)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue session", slog.Any("error", err))
		return nil, types.NewTransientError("issue session", err)
	}
	m.SignInsTotal.Add(ctx, 1, metrics.Outcome("success"))
	s.audit.Record(ctx, audit.Event{
		Type: audit.EventSignIn, UserID: user.ID.String(), Email: email,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
	return issued, nil
}

func (s *AuthServiceImpl) SignOut(ctx context.Context, sessionToken string) (err error) {
	ctx, span := tracer().Start(ctx, "SignOut")
	defer func() { endSpan(span, err) }()

	if sessionToken == "" {
		return nil
	}
	id, parseErr := s.signer.parse(sessionToken)
	if parseErr != nil {
		return nil
	}

	s.cache.Delete(ctx, id)
	if err = s.repo.DeleteSession(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "Failed to delete session", slog.String("method", "SignOut"), slog.Any("error", err))
		return types.NewTransientError("delete session", err)
	}
	metrics.Get().SignOutsTotal.Add(ctx, 1)
	s.audit.Record(ctx, audit.Event{Type: audit.EventSignOut})
	return nil
}

func (s *AuthServiceImpl) RequestPasswordReset(ctx context.Context, email string) (err error) {
	ctx, span := tracer().Start(ctx, "RequestPasswordReset")
	defer func() { endSpan(span, err) }()
	l := s.logger.With(slog.String("method", "RequestPasswordReset"))

	email = NormalizeEmail(email)
	if err = ValidateEmail(email); err != nil {
		return err
	}

	// Every branch below reports success so the endpoint cannot be used to
	// tell which addresses have accounts.
	user, lookupErr := s.repo.GetUserByEmail(ctx, email)
	if lookupErr != nil {
		if !errors.Is(lookupErr, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to look up user for password reset", slog.Any("error", lookupErr))
		}
		return nil
	}

	token, hash, tokenErr := newOpaqueToken()
	if tokenErr != nil {
		l.ErrorContext(ctx, "Failed to generate reset token", slog.Any("error", tokenErr))
		return nil
	}
	if repoErr := s.repo.CreatePasswordResetToken(ctx, user.ID, hash, s.now().Add(s.opts.ResetTokenTTL)); repoErr != nil {
		l.ErrorContext(ctx, "Failed to store reset token", slog.Any("error", repoErr))
		return nil
	}
	s.audit.Record(ctx, audit.Event{Type: audit.EventPasswordResetRequest, UserID: user.ID.String(), Email: email})

	if mailErr := s.mailer.SendPasswordResetEmail(ctx, user.Email, user.Name, s.resetLink(token)); mailErr != nil {
		l.ErrorContext(ctx, "Failed to send password reset email", slog.Any("error", mailErr))
	}
	return nil
}

func (s *AuthServiceImpl) ResetPassword(ctx context.Context, in types.ResetPasswordInput) (err error) {
	ctx, span := tracer().Start(ctx, "ResetPassword")
	defer func() { endSpan(span, err) }()
	l := s.logger.With(slog.String("method", "ResetPassword"))
	m := metrics.Get()

	if strings.TrimSpace(in.Token) == "" {
		m.PasswordResetsTotal.Add(ctx, 1, metrics.Outcome("invalid_token"))
		return types.ErrInvalidToken
	}
	if in.ConfirmPassword != "" && in.ConfirmPassword != in.NewPassword {
		return types.NewValidationError("confirmPassword", "Passwords don't match.")
	}
	// The policy is checked first so a weak password never burns the token.
	if err = s.opts.Password.Validate("newPassword", in.NewPassword); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), BcryptCost)
	if err != nil {
		l.ErrorContext(ctx, "Failed to hash password", slog.Any("error", err))
		return types.NewTransientError("hash password", err)
	}

	userID, err := s.repo.ResetPasswordWithToken(ctx, hashToken(in.Token), string(hash))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			m.PasswordResetsTotal.Add(ctx, 1, metrics.Outcome("invalid_token"))
			return types.ErrInvalidToken
		}
		l.ErrorContext(ctx, "Failed to reset password", slog.Any("error", err))
		return types.NewTransientError("reset password", err)
	}
	m.PasswordResetsTotal.Add(ctx, 1, metrics.Outcome("success"))
	s.audit.Record(ctx, audit.Event{Type: audit.EventPasswordReset, UserID: userID.String()})

	if s.opts.RevokeSessionsOnPasswordReset {
		ids, revokeErr := s.repo.DeleteUserSessions(ctx, userID)
		if revokeErr != nil {
			l.ErrorContext(ctx, "Failed to revoke sessions after password reset", slog.Any("error", revokeErr))
			return nil
		}
		s.cache.Delete(ctx, ids...)
	}
	return nil
}

func (s *AuthServiceImpl) SendVerificationEmail(ctx context.Context, email, callbackURL string) (err error) {
	ctx, span := tracer().Start(ctx, "SendVerificationEmail")
	defer func() { endSpan(span, err) }()
	l := s.logger.With(slog.String("method", "SendVerificationEmail"))

	email = NormalizeEmail(email)
	if err = ValidateEmail(email); err != nil {
		return err
	}

	user, lookupErr := s.repo.GetUserByEmail(ctx, email)
	if lookupErr != nil {
		if !errors.Is(lookupErr, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to look up user for verification", slog.Any("error", lookupErr))
		}
		return nil
	}
	if user.EmailVerified {
		return nil
	}

	if err = s.issueVerification(ctx, user.Email, user.Name, callbackURL); err != nil {
		var transient *types.TransientError
		if errors.As(err, &transient) {
			l.ErrorContext(ctx, "Failed to issue verification token", slog.Any("error", err))
			return err
		}
		l.ErrorContext(ctx, "Failed to send verification email", slog.Any("error", err))
		return nil
	}
	return nil
}

func (s *AuthServiceImpl) VerifyEmail(ctx context.Context, token string, meta types.ClientMeta) (user *types.User, issued *types.IssuedSession, err error) {
	ctx, span := tracer().Start(ctx, "VerifyEmail")
	defer func() { endSpan(span, err) }()
	l := s.logger.With(slog.String("method", "VerifyEmail"))
	m := metrics.Get()

	if strings.TrimSpace(token) == "" {
		m.VerificationsTotal.Add(ctx, 1, metrics.Outcome("invalid_token"))
		return nil, nil, types.ErrInvalidToken
	}

	user, err = s.repo.VerifyEmailWithToken(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			m.VerificationsTotal.Add(ctx, 1, metrics.Outcome("invalid_token"))
			return nil, nil, types.ErrInvalidToken
		}
		l.ErrorContext(ctx, "Failed to verify email", slog.Any("error", err))
		return nil, nil, types.NewTransientError("verify email", err)
	}
	m.VerificationsTotal.Add(ctx, 1, metrics.Outcome("success"))
	s.audit.Record(ctx, audit.Event{Type: audit.EventEmailVerified, UserID: user.ID.String(), Email: user.Email})

	if s.opts.AutoSignInAfterVerification {
		issued, err = s.issueSession(ctx, user, meta)
		if err != nil {
			// Verification already committed; the user can still sign in manually.
			l.ErrorContext(ctx, "Failed to issue session after verification", slog.Any("error", err))
			issued, err = nil, nil
		}
	}
	user.PasswordHash = nil
	return user, issued, nil
}

func (s *AuthServiceImpl) ResolveSession(ctx context.Context, sessionToken string) (*types.AuthSession, error) {
	if sessionToken == "" {
		return nil, nil
	}
	id, err := s.signer.parse(sessionToken)
	if err != nil {
		return nil, nil
	}

	m := metrics.Get()
	if cached, ok := s.cache.Get(ctx, id); ok {
		if cached.Session.Expired(s.now()) {
			s.cache.Delete(ctx, id)
			return nil, nil
		}
		m.SessionCacheLookups.Add(ctx, 1, metrics.Outcome("hit"))
		return cached, nil
	}
	m.SessionCacheLookups.Add(ctx, 1, metrics.Outcome("miss"))

	v, err, _ := s.lookups.Do(id.String(), func() (any, error) {
		as, err := s.repo.GetSessionWithUser(ctx, id)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				return (*types.AuthSession)(nil), nil
			}
			return nil, err
		}
		return as, nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to resolve session", slog.String("method", "ResolveSession"), slog.Any("error", err))
		return nil, types.NewTransientError("resolve session", err)
	}
	as, _ := v.(*types.AuthSession)
	if as == nil {
		return nil, nil
	}
	if as.Session.Expired(s.now()) {
		return nil, nil
	}

	resolved := *as
	resolved.User.PasswordHash = nil
	s.cache.Set(ctx, &resolved)
	return &resolved, nil
}

func (s *AuthServiceImpl) SignInWithOAuth(ctx context.Context, identity types.OAuthIdentity, meta types.ClientMeta) (issued *types.IssuedSession, err error) {
	ctx, span := tracer().Start(ctx, "SignInWithOAuth", trace.WithAttributes(attribute.String("oauth.provider", identity.Provider)))
	defer func() { endSpan(span, err) }()
	l := s.logger.With(slog.String("method", "SignInWithOAuth"), slog.String("provider", identity.Provider))

	identity.Email = NormalizeEmail(identity.Email)
	if err = ValidateEmail(identity.Email); err != nil {
		return nil, err
	}
	if identity.Name == "" {
		identity.Name = strings.SplitN(identity.Email, "@", 2)[0]
	}

	user, revoked, err := s.repo.UpsertOAuthUser(ctx, identity)
	if err != nil {
		l.ErrorContext(ctx, "Failed to link OAuth account", slog.Any("error", err))
		return nil, types.NewTransientError("link oauth account", err)
	}
	if len(revoked) > 0 {
		s.cache.Delete(ctx, revoked...)
		l.InfoContext(ctx, "Unverified account claimed through OAuth", slog.String("userID", user.ID.String()), slog.Int("sessionsRevoked", len(revoked)))
	}
	issued, err = s.issueSession(ctx, user, meta)
	if err != nil {
		l.ErrorContext(ctx, "Failed to issue session", slog.Any("error", err))
		return nil, types.NewTransientError("issue session", err)
	}
	metrics.Get().SignInsTotal.Add(ctx, 1, metrics.Outcome("oauth"))
	s.audit.Record(ctx, audit.Event{
		Type: audit.EventOAuthSignIn, UserID: user.ID.String(), Email: user.Email, Reason: identity.Provider,
		IPAddress: meta.IPAddress, UserAgent: meta.UserAgent,
	})
	return issued, nil
}

// SetUserRole changes the role of the user with this email. Cached sessions pick
// the new role up once their cache entry expires.
func (s *AuthServiceImpl) SetUserRole(ctx context.Context, email string, role types.Role) (err error) {
	ctx, span := tracer().Start(ctx, "SetUserRole", trace.WithAttributes(attribute.String("user.role", string(role))))
	defer func() { endSpan(span, err) }()

	email = NormalizeEmail(email)
	if err = ValidateEmail(email); err != nil {
		return err
	}
	if !role.Valid() {
		return types.NewValidationError("role", "Role must be USER or ADMIN.")
	}

	if err = s.repo.SetUserRole(ctx, email, role); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.ErrUserNotFound
		}
		s.logger.ErrorContext(ctx, "Failed to update role", slog.String("method", "SetUserRole"), slog.Any("error", err))
		return types.NewTransientError("update role", err)
	}
	s.audit.Record(ctx, audit.Event{Type: audit.EventRoleChanged, Email: email, Reason: string(role)})
	return nil
}

func (s *AuthServiceImpl) PurgeExpired(ctx context.Context) (n int64, err error) {
	ctx, span := tracer().Start(ctx, "PurgeExpired")
	defer func() { endSpan(span, err) }()

	n, err = s.repo.PurgeExpired(ctx)
	if err != nil {
		return n, err
	}
	metrics.Get().ExpiredRowsPurgedTotal.Add(ctx, n)
	return n, nil
}

func (s *AuthServiceImpl) issueSession(ctx context.Context, user *types.User, meta types.ClientMeta) (*types.IssuedSession, error) {
	now := s.now().UTC()
	session := types.Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		ExpiresAt: now.Add(s.opts.SessionTTL),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		CreatedAt: now,
	}
	token, err := s.signer.sign(session.ID, user.ID, now, session.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	public := *user
	public.PasswordHash = nil
	s.cache.Set(ctx, &types.AuthSession{Session: session, User: public})
	return &types.IssuedSession{Token: token, Session: session, User: public}, nil
}

// issueVerification replaces the outstanding verification token and mails a link.
// Token persistence failures are TransientErrors; mail failures are returned as-is.
func (s *AuthServiceImpl) issueVerification(ctx context.Context, email, name, callbackURL string) error {
	token, hash, err := newOpaqueToken()
	if err != nil {
		return types.NewTransientError("generate verification token", err)
	}
	if err := s.repo.ReplaceVerificationToken(ctx, email, hash, s.now().Add(s.opts.VerificationTokenTTL)); err != nil {
		return types.NewTransientError("store verification token", err)
	}
	s.audit.Record(ctx, audit.Event{Type: audit.EventVerificationSent, Email: email})
	if err := s.mailer.SendVerificationEmail(ctx, email, name, s.verificationLink(token, callbackURL)); err != nil {
		return fmt.Errorf("send verification email: %w", err)
	}
	return nil
}

func (s *AuthServiceImpl) verificationLink(token, callbackURL string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("callbackURL", api.SafeRedirectPath(callbackURL, s.opts.LandingPath))
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + "/api/auth/verify-email?" + q.Encode()
}

func (s *AuthServiceImpl) resetLink(token string) string {
	q := url.Values{}
	q.Set("token", token)
	return strings.TrimRight(s.opts.PublicBaseURL, "/") + s.opts.ResetPasswordPath + "?" + q.Encode()
}
