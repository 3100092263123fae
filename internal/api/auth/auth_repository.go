package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/easystock/app/db"
	"github.com/FACorreiaa/easystock/internal/types"
)

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// AuthRepo is the Credential Store used by the session/identity service.
type AuthRepo interface {
	// GetUserByEmail returns types.ErrNotFound when no user has this email.
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	// CreateUser returns types.ErrConflict when the email is already registered.
	CreateUser(ctx context.Context, user *types.User) error
	SetUserRole(ctx context.Context, email string, role types.Role) error

	CreateSession(ctx context.Context, session types.Session) error
	// GetSessionWithUser returns types.ErrNotFound for unknown sessions.
	GetSessionWithUser(ctx context.Context, id uuid.UUID) (*types.AuthSession, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	// DeleteUserSessions removes every session of a user and returns their ids.
	DeleteUserSessions(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)

	// ReplaceVerificationToken invalidates outstanding tokens for identifier and stores a new one.
	ReplaceVerificationToken(ctx context.Context, identifier, tokenHash string, expiresAt time.Time) error
	// VerifyEmailWithToken consumes the token and marks the user verified.
	// Returns types.ErrNotFound when the token is unknown, expired or already used.
	VerifyEmailWithToken(ctx context.Context, tokenHash string) (*types.User, error)

	CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	// ResetPasswordWithToken consumes the token, stores the new hash and invalidates
	// the user's other outstanding reset tokens.
	// Returns types.ErrNotFound when the token is unknown, expired or already used.
	ResetPasswordWithToken(ctx context.Context, tokenHash, passwordHash string) (uuid.UUID, error)

	// UpsertOAuthUser links a provider account, creating a verified user when needed.
	// Linking to an unverified password account clears its password and deletes its
	// sessions; the deleted session ids are returned.
	UpsertOAuthUser(ctx context.Context, identity types.OAuthIdentity) (*types.User, []uuid.UUID, error)

	// PurgeExpired deletes expired sessions and expired or consumed tokens.
	PurgeExpired(ctx context.Context) (int64, error)
}

type PostgresAuthRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresAuthRepo(db database.DB, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = `id, name, email, password_hash, email_verified, role, image, image_id, shop_name, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var role string
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerified, &role,
		&u.Image, &u.ImageID, &u.ShopName, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = types.Role(role)
	return &u, nil
}

func startSpan(ctx context.Context, name, operation, table string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", table),
	)
	return otel.Tracer("AuthRepo").Start(ctx, name, trace.WithAttributes(attrs...))
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := startSpan(ctx, "GetUserByEmail", "SELECT", "users")
	defer span.End()

	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "user not found")
			return nil, types.ErrNotFound
		}
		failSpan(span, err, "DB query failed")
		r.logger.ErrorContext(ctx, "Failed to fetch user by email", slog.String("method", "GetUserByEmail"), slog.Any("error", err))
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return user, nil
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, user *types.User) error {
	ctx, span := startSpan(ctx, "CreateUser", "INSERT", "users")
	defer span.End()

	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, email_verified, role, shop_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.EmailVerified, string(user.Role), user.ShopName,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			span.SetStatus(codes.Error, "email already exists")
			return types.ErrConflict
		}
		failSpan(span, err, "DB insert failed")
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.String("method", "CreateUser"), slog.Any("error", err))
		return fmt.Errorf("database error creating user: %w", err)
	}
	span.SetStatus(codes.Ok, "user created")
	return nil
}

func (r *PostgresAuthRepo) SetUserRole(ctx context.Context, email string, role types.Role) error {
	ctx, span := startSpan(ctx, "SetUserRole", "UPDATE", "users", attribute.String("user.role", string(role)))
	defer span.End()

	tag, err := r.db.Exec(ctx, `UPDATE users SET role = $2, updated_at = now() WHERE email = $1`, email, string(role))
	if err != nil {
		failSpan(span, err, "DB update failed")
		return fmt.Errorf("database error updating role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (r *PostgresAuthRepo) CreateSession(ctx context.Context, session types.Session) error {
	ctx, span := startSpan(ctx, "CreateSession", "INSERT", "sessions", attribute.String("db.user.id", session.UserID.String()))
	defer span.End()

	_, err := r.db.Exec(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		session.ID, session.UserID, session.ExpiresAt, session.IPAddress, session.UserAgent, session.CreatedAt)
	if err != nil {
		failSpan(span, err, "DB insert failed")
		return fmt.Errorf("database error creating session: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) GetSessionWithUser(ctx context.Context, id uuid.UUID) (*types.AuthSession, error) {
	ctx, span := startSpan(ctx, "GetSessionWithUser", "SELECT", "sessions, users")
	defer span.End()

	var (
		as        types.AuthSession
		role      string
		ipAddress *string
		userAgent *string
	)
	err := r.db.QueryRow(ctx, `
		SELECT s.id, s.user_id, s.expires_at, s.ip_address, s.user_agent, s.created_at,
		       u.id, u.name, u.email, u.password_hash, u.email_verified, u.role, u.image, u.image_id, u.shop_name, u.created_at, u.updated_at
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1`, id,
	).Scan(
		&as.Session.ID, &as.Session.UserID, &as.Session.ExpiresAt, &ipAddress, &userAgent, &as.Session.CreatedAt,
		&as.User.ID, &as.User.Name, &as.User.Email, &as.User.PasswordHash, &as.User.EmailVerified, &role,
		&as.User.Image, &as.User.ImageID, &as.User.ShopName, &as.User.CreatedAt, &as.User.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		failSpan(span, err, "DB query failed")
		return nil, fmt.Errorf("database error fetching session: %w", err)
	}
	as.User.Role = types.Role(role)
	if ipAddress != nil {
		as.Session.IPAddress = *ipAddress
	}
	if userAgent != nil {
		as.Session.UserAgent = *userAgent
	}
	return &as, nil
}

func (r *PostgresAuthRepo) DeleteSession(ctx context.Context, id uuid.UUID) error {
	ctx, span := startSpan(ctx, "DeleteSession", "DELETE", "sessions")
	defer span.End()

	if _, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		failSpan(span, err, "DB delete failed")
		return fmt.Errorf("database error deleting session: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) DeleteUserSessions(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	ctx, span := startSpan(ctx, "DeleteUserSessions", "DELETE", "sessions", attribute.String("db.user.id", userID.String()))
	defer span.End()

	rows, err := r.db.Query(ctx, `DELETE FROM sessions WHERE user_id = $1 RETURNING id`, userID)
	if err != nil {
		failSpan(span, err, "DB delete failed")
		return nil, fmt.Errorf("database error deleting sessions: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		failSpan(span, err, "DB delete failed")
		return nil, fmt.Errorf("database error deleting sessions: %w", err)
	}
	span.SetAttributes(attribute.Int("sessions.deleted", len(ids)))
	return ids, nil
}

func (r *PostgresAuthRepo) ReplaceVerificationToken(ctx context.Context, identifier, tokenHash string, expiresAt time.Time) error {
	ctx, span := startSpan(ctx, "ReplaceVerificationToken", "INSERT", "verification_tokens")
	defer span.End()

	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE verification_tokens SET consumed_at = now() WHERE identifier = $1 AND consumed_at IS NULL`,
			identifier); err != nil {
			return fmt.Errorf("invalidate verification tokens: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO verification_tokens (id, identifier, token_hash, expires_at) VALUES ($1, $2, $3, $4)`,
			uuid.New(), identifier, tokenHash, expiresAt); err != nil {
			return fmt.Errorf("insert verification token: %w", err)
		}
		return nil
	})
	if err != nil {
		failSpan(span, err, "DB transaction failed")
		return fmt.Errorf("database error storing verification token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) VerifyEmailWithToken(ctx context.Context, tokenHash string) (*types.User, error) {
	ctx, span := startSpan(ctx, "VerifyEmailWithToken", "UPDATE", "verification_tokens, users")
	defer span.End()

	var user *types.User
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var identifier string
		err := tx.QueryRow(ctx, `
			UPDATE verification_tokens SET consumed_at = now()
			WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > now()
			RETURNING identifier`, tokenHash).Scan(&identifier)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("consume verification token: %w", err)
		}

		user, err = scanUser(tx.QueryRow(ctx, `
			UPDATE users SET email_verified = TRUE, updated_at = now()
			WHERE email = $1
			RETURNING `+userColumns, identifier))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("mark email verified: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "token not usable")
			return nil, err
		}
		failSpan(span, err, "DB transaction failed")
		return nil, fmt.Errorf("database error verifying email: %w", err)
	}
	return user, nil
}

func (r *PostgresAuthRepo) CreatePasswordResetToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error {
	ctx, span := startSpan(ctx, "CreatePasswordResetToken", "INSERT", "password_reset_tokens", attribute.String("db.user.id", userID.String()))
	defer span.End()

	_, err := r.db.Exec(ctx,
		`INSERT INTO password_reset_tokens (id, user_id, token_hash, expires_at) VALUES ($1, $2, $3, $4)`,
		uuid.New(), userID, tokenHash, expiresAt)
	if err != nil {
		failSpan(span, err, "DB insert failed")
		return fmt.Errorf("database error storing reset token: %w", err)
	}
	return nil
}

func (r *PostgresAuthRepo) ResetPasswordWithToken(ctx context.Context, tokenHash, passwordHash string) (uuid.UUID, error) {
	ctx, span := startSpan(ctx, "ResetPasswordWithToken", "UPDATE", "password_reset_tokens, users")
	defer span.End()

	var userID uuid.UUID
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			UPDATE password_reset_tokens SET consumed_at = now()
			WHERE token_hash = $1 AND consumed_at IS NULL AND expires_at > now()
			RETURNING user_id`, tokenHash).Scan(&userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return types.ErrNotFound
			}
			return fmt.Errorf("consume reset token: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`,
			userID, passwordHash)
		if err != nil {
			return fmt.Errorf("update password: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return types.ErrNotFound
		}

		if _, err = tx.Exec(ctx,
			`UPDATE password_reset_tokens SET consumed_at = now() WHERE user_id = $1 AND consumed_at IS NULL`,
			userID); err != nil {
			return fmt.Errorf("invalidate reset tokens: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "token not usable")
			return uuid.Nil, err
		}
		failSpan(span, err, "DB transaction failed")
		return uuid.Nil, fmt.Errorf("database error resetting password: %w", err)
	}
	return userID, nil
}

func (r *PostgresAuthRepo) UpsertOAuthUser(ctx context.Context, identity types.OAuthIdentity) (*types.User, []uuid.UUID, error) {
	ctx, span := startSpan(ctx, "UpsertOAuthUser", "UPSERT", "accounts, users",
		attribute.String("oauth.provider", identity.Provider))
	defer span.End()

	var (
		user    *types.User
		revoked []uuid.UUID
	)
	err := database.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		var err error
		user, err = scanUser(tx.QueryRow(ctx, `
			SELECT u.`+userColumnsPrefixed+`
			FROM accounts a JOIN users u ON u.id = a.user_id
			WHERE a.provider = $1 AND a.provider_account_id = $2`,
			identity.Provider, identity.ProviderAccountID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lookup linked account: %w", err)
		}

		user, err = scanUser(tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE email = $1 FOR UPDATE`, identity.Email))
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			var image *string
			if identity.AvatarURL != "" {
				image = &identity.AvatarURL
			}
			user, err = scanUser(tx.QueryRow(ctx, `
				INSERT INTO users (id, name, email, email_verified, role, image)
				VALUES ($1, $2, $3, TRUE, $4, $5)
				RETURNING `+userColumns,
				uuid.New(), identity.Name, identity.Email, string(types.RoleUser), image))
			if err != nil {
				return fmt.Errorf("insert oauth user: %w", err)
			}
		case err != nil:
			return fmt.Errorf("lookup user by email: %w", err)
		case !user.EmailVerified:
			// Nobody proved ownership of this address before the provider did, so
			// the password set at sign-up is not trusted.
			user, err = scanUser(tx.QueryRow(ctx, `
				UPDATE users SET email_verified = TRUE, password_hash = NULL, updated_at = now()
				WHERE id = $1
				RETURNING `+userColumns, user.ID))
			if err != nil {
				return fmt.Errorf("claim unverified user: %w", err)
			}
			rows, err := tx.Query(ctx, `DELETE FROM sessions WHERE user_id = $1 RETURNING id`, user.ID)
			if err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
			if revoked, err = pgx.CollectRows(rows, pgx.RowTo[uuid.UUID]); err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
		}

		if _, err = tx.Exec(ctx, `
			INSERT INTO accounts (id, user_id, provider, provider_account_id)
			VALUES ($1, $2, $3, $4)`,
			uuid.New(), user.ID, identity.Provider, identity.ProviderAccountID); err != nil {
			return fmt.Errorf("link account: %w", err)
		}
		return nil
	})
	if err != nil {
		failSpan(span, err, "DB transaction failed")
		return nil, nil, fmt.Errorf("database error linking oauth account: %w", err)
	}
	return user, revoked, nil
}

const userColumnsPrefixed = `id, u.name, u.email, u.password_hash, u.email_verified, u.role, u.image, u.image_id, u.shop_name, u.created_at, u.updated_at`

func (r *PostgresAuthRepo) PurgeExpired(ctx context.Context) (int64, error) {
	ctx, span := startSpan(ctx, "PurgeExpired", "DELETE", "sessions, verification_tokens, password_reset_tokens")
	defer span.End()

	var total int64
	statements := []string{
		`DELETE FROM sessions WHERE expires_at <= now()`,
		`DELETE FROM verification_tokens WHERE expires_at <= now() OR consumed_at IS NOT NULL`,
		`DELETE FROM password_reset_tokens WHERE expires_at <= now() OR consumed_at IS NOT NULL`,
	}
	for _, stmt := range statements {
		tag, err := r.db.Exec(ctx, stmt)
		if err != nil {
			failSpan(span, err, "DB delete failed")
			return total, fmt.Errorf("database error purging expired rows: %w", err)
		}
		total += tag.RowsAffected()
	}
	span.SetAttributes(attribute.Int64("rows.deleted", total))
	return total, nil
}
