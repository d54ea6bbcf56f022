// Package services orchestrates domain operations across storage, auth and
// the sync queue.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// AuthService handles registration, login and password resets.
type AuthService struct {
	storage    *storage.SQLiteRepository
	bcryptCost int
}

func NewAuthService(storage *storage.SQLiteRepository, bcryptCost int) *AuthService {
	if bcryptCost <= 0 {
		bcryptCost = auth.DefaultBcryptCost
	}
	return &AuthService{
		storage:    storage,
		bcryptCost: bcryptCost,
	}
}

// EnsureDefaultUser seeds a well-known account when the user table is empty,
// so a fresh install is usable without registering first.
func (s *AuthService) EnsureDefaultUser(ctx context.Context) error {
	count, err := s.storage.CountUsers(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword("password", s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash default password: %w", err)
	}

	u, err := s.storage.CreateUser(ctx, core.User{
		FirstName:    "Default",
		LastName:     "User",
		Email:        "default@example.com",
		Phone:        "1234567890",
		Position:     "Employee",
		Address:      "Default Address",
		PasswordHash: hash,
	})
	if err != nil {
		// Another instance may have seeded concurrently.
		if errors.Is(err, core.ErrEmailTaken) {
			return nil
		}
		return fmt.Errorf("create default user: %w", err)
	}

	slog.InfoContext(ctx, "Seeded default user", "email", u.Email, "id", u.ID)
	return nil
}

// Register creates a new account. The password arrives twice and must match;
// only the bcrypt hash is stored.
func (s *AuthService) Register(ctx context.Context, u core.User, password, confirmPassword string) (core.User, error) {
	if _, err := s.storage.FindUserByEmail(ctx, u.Email); err == nil {
		return core.User{}, core.ErrEmailTaken
	} else if !errors.Is(err, core.ErrUserNotFound) {
		return core.User{}, fmt.Errorf("check existing email: %w", err)
	}

	if password != confirmPassword {
		return core.User{}, core.ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	created, err := s.storage.CreateUser(ctx, u)
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "Registered user", "id", created.ID, "email", created.Email)
	return created, nil
}

// Login verifies credentials and issues an auth token for the session.
func (s *AuthService) Login(ctx context.Context, email, password string) (core.User, string, error) {
	u, err := s.storage.FindUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, "", err
	}

	if !auth.CheckPassword(password, u.PasswordHash) {
		return core.User{}, "", core.ErrInvalidCredentials
	}

	token := auth.IssueToken(u.Email)
	slog.InfoContext(ctx, "User logged in", "id", u.ID, "email", u.Email)
	return u, token, nil
}

// ResetPassword replaces the password of the account with the given email.
// There is no out-of-band verification; the endpoint exists for the
// forgot-password flow.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword, confirmPassword string) error {
	u, err := s.storage.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	if newPassword != confirmPassword {
		return core.ErrPasswordMismatch
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash

	if _, err := s.storage.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	slog.InfoContext(ctx, "Password reset", "id", u.ID, "email", u.Email)
	return nil
}

// ResolveUser maps an auth token to the account it claims. An unknown email
// or malformed token both surface as ErrUnauthenticated so the caller can
// answer 401 without leaking which part failed.
func (s *AuthService) ResolveUser(ctx context.Context, token string) (core.User, error) {
	email, err := auth.ResolveEmail(token)
	if err != nil {
		return core.User{}, core.ErrUnauthenticated
	}

	u, err := s.storage.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrUserNotFound) {
			return core.User{}, core.ErrUnauthenticated
		}
		return core.User{}, err
	}
	return u, nil
}
