package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

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

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for profile data access.
type UserRepo interface {
	// GetUserByID returns types.ErrNotFound when the user does not exist.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	// UpdateProfile applies the non-nil fields of params and returns the updated user.
	UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error)
	// SetAvatar stores the new image and returns the object id it replaced, if any.
	SetAvatar(ctx context.Context, userID uuid.UUID, avatar types.Avatar) (*string, error)
}

type PostgresUserRepo struct {
	logger *slog.Logger
	db     database.DB
}

func NewPostgresUserRepo(db database.DB, logger *slog.Logger) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = `id, name, email, password_hash, email_verified, role, image, image_id, shop_name, created_at, updated_at`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	var role string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.EmailVerified, &role,
		&u.Image, &u.ImageID, &u.ShopName, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = types.Role(role)
	return &u, nil
}

// GetUserByID fetches a user's profile by ID.
func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "GetUserByID"), slog.String("userID", userID.String()))

	user, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.WarnContext(ctx, "User not found")
			span.SetStatus(codes.Error, "User not found")
			return nil, types.ErrNotFound
		}
		l.ErrorContext(ctx, "Failed to query user", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("database error fetching user: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return user, nil
}

// UpdateProfile updates mutable profile fields for a user.
func (r *PostgresUserRepo) UpdateProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateProfile", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateProfile"), slog.String("userID", userID.String()))

	var setClauses []string
	var args []any
	argID := 1

	if params.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *params.Name)
		argID++
		span.SetAttributes(attribute.Bool("update.name", true))
	}
	if params.ShopName != nil {
		// An empty shop name clears the column.
		var shop *string
		if *params.ShopName != "" {
			shop = params.ShopName
		}
		setClauses = append(setClauses, fmt.Sprintf("shop_name = $%d", argID))
		args = append(args, shop)
		argID++
		span.SetAttributes(attribute.Bool("update.shop_name", true))
	}

	if len(setClauses) == 0 {
		l.InfoContext(ctx, "No fields to update")
		span.SetStatus(codes.Ok, "no-op")
		return r.GetUserByID(ctx, userID)
	}

	query := fmt.Sprintf(`UPDATE users SET %s, updated_at = now() WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argID, userColumns)
	args = append(args, userID)

	user, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, types.ErrNotFound
		}
		l.ErrorContext(ctx, "Failed to update user profile", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return nil, fmt.Errorf("database error updating profile: %w", err)
	}

	l.InfoContext(ctx, "User profile updated")
	span.SetStatus(codes.Ok, "")
	return user, nil
}

// SetAvatar swaps the user's image in one statement, returning the previous object id.
func (r *PostgresUserRepo) SetAvatar(ctx context.Context, userID uuid.UUID, avatar types.Avatar) (*string, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "SetAvatar", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	var previous *string
	err := r.db.QueryRow(ctx, `
		UPDATE users u SET image = $1, image_id = $2, updated_at = now()
		FROM (SELECT id, image_id FROM users WHERE id = $3 FOR UPDATE) old
		WHERE u.id = old.id
		RETURNING old.image_id`,
		avatar.URL, avatar.ObjectID, userID).Scan(&previous)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "User not found")
			return nil, types.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to set avatar", slog.String("method", "SetAvatar"), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		return nil, fmt.Errorf("database error setting avatar: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return previous, nil
}
