package services

import (
	"context"
	"fmt"
	"log/slog"

	"fintrack/internal/auth"
	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// UserService reads and updates account profiles.
type UserService struct {
	storage    *storage.SQLiteRepository
	bcryptCost int
}

func NewUserService(storage *storage.SQLiteRepository, bcryptCost int) *UserService {
	if bcryptCost <= 0 {
		bcryptCost = auth.DefaultBcryptCost
	}
	return &UserService{
		storage:    storage,
		bcryptCost: bcryptCost,
	}
}

// GetByID loads a user profile.
func (s *UserService) GetByID(ctx context.Context, id int64) (core.User, error) {
	return s.storage.FindUserByID(ctx, id)
}

// UpdateProfile overwrites the profile fields of the user with the given id.
// When newPassword is non-empty it is hashed and replaces the stored hash;
// otherwise the existing hash is kept.
func (s *UserService) UpdateProfile(ctx context.Context, u core.User, newPassword string) (core.User, error) {
	existing, err := s.storage.FindUserByID(ctx, u.ID)
	if err != nil {
		return core.User{}, err
	}

	u.PasswordHash = existing.PasswordHash
	if newPassword != "" {
		hash, err := auth.HashPassword(newPassword, s.bcryptCost)
		if err != nil {
			return core.User{}, fmt.Errorf("hash password: %w", err)
		}
		u.PasswordHash = hash
	}

	updated, err := s.storage.UpdateUser(ctx, u)
	if err != nil {
		return core.User{}, err
	}

	slog.InfoContext(ctx, "Updated user profile", "id", updated.ID, "email", updated.Email)
	return updated, nil
}
