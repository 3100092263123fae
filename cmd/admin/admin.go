package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/easystock/internal/api/auth"
	"github.com/FACorreiaa/easystock/internal/types"
)

// userStore is the part of the credential store the admin commands touch.
type userStore interface {
	CreateUser(ctx context.Context, user *types.User) error
	SetUserRole(ctx context.Context, email string, role types.Role) error
}

// createAdmin inserts a verified ADMIN user. The password must satisfy policy.
func createAdmin(ctx context.Context, store userStore, policy auth.PasswordPolicy, name, email string, password []byte) (*types.User, error) {
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if len([]rune(name)) < 2 {
		return nil, types.NewValidationError("name", "Name must be at least 2 characters.")
	}
	if err := policy.Validate("password", string(password)); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword(password, auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashed := string(hash)

	user := &types.User{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		PasswordHash:  &hashed,
		EmailVerified: true,
		Role:          types.RoleAdmin,
	}
	if err := store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, types.ErrConflict) {
			return nil, fmt.Errorf("a user with email %s already exists; use promote instead", email)
		}
		return nil, err
	}
	return user, nil
}

// promote grants the ADMIN role to an existing user.
func promote(ctx context.Context, store userStore, email string) error {
	email = auth.NormalizeEmail(email)
	if err := auth.ValidateEmail(email); err != nil {
		return err
	}
	if err := store.SetUserRole(ctx, email, types.RoleAdmin); err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return fmt.Errorf("no user with email %s", email)
		}
		return err
	}
	return nil
}
