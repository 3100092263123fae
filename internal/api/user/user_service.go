package user

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/easystock/app/audit"
	"github.com/FACorreiaa/easystock/internal/types"
)

// Ensure implementation satisfies the interface
var _ UserService = (*UserServiceImpl)(nil)

const (
	minNameLength     = 2
	maxNameLength     = 100
	maxShopNameLength = 120

	// MaxAvatarBytes caps the size of an uploaded profile image.
	MaxAvatarBytes = 2 << 20
)

// ErrAvatarStorageDisabled is returned when no object store is configured.
var ErrAvatarStorageDisabled = errors.New("avatar storage is not configured")

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStore is where profile images live.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// UserService defines the business logic contract for profile operations.
type UserService interface {
	GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error)
	UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, contentType string) (*types.Avatar, error)
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
	store  ObjectStore
	audit  audit.Recorder
}

// NewUserService creates a new user service instance. store may be nil, in
// which case avatar uploads are rejected.
func NewUserService(repo UserRepo, store ObjectStore, recorder audit.Recorder, logger *slog.Logger) *UserServiceImpl {
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
		store:  store,
		audit:  recorder,
	}
}

// GetUserProfile retrieves a user's profile by ID.
func (s *UserServiceImpl) GetUserProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUserProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetUserProfile"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching user profile")

	profile, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to fetch user profile", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch user profile")
		return nil, fmt.Errorf("error fetching user profile: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return profile, nil
}

// UpdateUserProfile validates and applies a partial profile update.
func (s *UserServiceImpl) UpdateUserProfile(ctx context.Context, userID uuid.UUID, params types.UpdateProfileParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateUserProfile", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdateUserProfile"), slog.String("userID", userID.String()))

	params, err := normalizeProfileParams(params)
	if err != nil {
		span.SetStatus(codes.Error, "invalid input")
		return nil, err
	}

	user, err := s.repo.UpdateProfile(ctx, userID, params)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			l.ErrorContext(ctx, "Failed to update user profile", slog.Any("error", err))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update user profile")
		return nil, fmt.Errorf("error updating user profile: %w", err)
	}

	s.audit.Record(ctx, audit.Event{Type: audit.EventProfileUpdated, UserID: userID.String(), Email: user.Email})
	span.SetStatus(codes.Ok, "")
	return user, nil
}

func normalizeProfileParams(params types.UpdateProfileParams) (types.UpdateProfileParams, error) {
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if n := utf8.RuneCountInString(name); n < minNameLength || n > maxNameLength {
			return params, types.NewValidationError("name", fmt.Sprintf("Name must be between %d and %d characters.", minNameLength, maxNameLength))
		}
		params.Name = &name
	}
	if params.ShopName != nil {
		shop := strings.TrimSpace(*params.ShopName)
		if utf8.RuneCountInString(shop) > maxShopNameLength {
			return params, types.NewValidationError("shopName", fmt.Sprintf("Shop name must be at most %d characters.", maxShopNameLength))
		}
		params.ShopName = &shop
	}
	return params, nil
}

// UploadAvatar stores a new profile image and removes the one it replaces.
func (s *UserServiceImpl) UploadAvatar(ctx context.Context, userID uuid.UUID, r io.Reader, size int64, contentType string) (*types.Avatar, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UploadAvatar", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("avatar.content_type", contentType),
		attribute.Int64("avatar.size", size),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UploadAvatar"), slog.String("userID", userID.String()))

	if s.store == nil {
		span.SetStatus(codes.Error, "storage disabled")
		return nil, ErrAvatarStorageDisabled
	}
	ext, ok := avatarExtensions[contentType]
	if !ok {
		span.SetStatus(codes.Error, "invalid content type")
		return nil, types.NewValidationError("avatar", "Avatar must be a PNG, JPEG, WebP or GIF image.")
	}
	if size <= 0 || size > MaxAvatarBytes {
		span.SetStatus(codes.Error, "invalid size")
		return nil, types.NewValidationError("avatar", fmt.Sprintf("Avatar must be at most %d MB.", MaxAvatarBytes>>20))
	}

	key := fmt.Sprintf("avatars/%s/%s%s", userID, uuid.New(), ext)
	url, err := s.store.Put(ctx, key, r, size, contentType)
	if err != nil {
		l.ErrorContext(ctx, "Failed to store avatar", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return nil, types.NewTransientError("store avatar", err)
	}

	avatar := types.Avatar{ObjectID: key, URL: url}
	previous, err := s.repo.SetAvatar(ctx, userID, avatar)
	if err != nil {
		s.removeObject(ctx, l, key)
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to save avatar")
		if errors.Is(err, types.ErrNotFound) {
			return nil, err
		}
		return nil, types.NewTransientError("save avatar", err)
	}
	if previous != nil && *previous != "" && *previous != key {
		s.removeObject(ctx, l, *previous)
	}

	s.audit.Record(ctx, audit.Event{Type: audit.EventAvatarUpdated, UserID: userID.String()})
	l.InfoContext(ctx, "Avatar updated", slog.String("object", key))
	span.SetStatus(codes.Ok, "")
	return &avatar, nil
}

// removeObject deletes an orphaned image. Failures only leave garbage in the bucket.
func (s *UserServiceImpl) removeObject(ctx context.Context, l *slog.Logger, key string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.store.Remove(ctx, key); err != nil {
		l.WarnContext(ctx, "Failed to remove avatar object", slog.String("object", key), slog.Any("error", err))
	}
}
