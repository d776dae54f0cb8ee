package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/authhub/internal/config"
	"github.com/geocoder89/authhub/internal/domain/user"
)

// AdminCreator is the slice of the user service the seeder needs.
type AdminCreator interface {
	CreateUser(ctx context.Context, in user.CreateUserRequest) (user.User, error)
}

// EnsureAdminUser creates the bootstrap ADMIN account once. An existing
// account with that email (deleted or not) is left untouched.
func EnsureAdminUser(ctx context.Context, users AdminCreator, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	u, err := users.CreateUser(ctx, user.CreateUserRequest{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     string(user.RoleAdmin),
	})

	if errors.Is(err, user.ErrDuplicateEmail) {
		return nil
	}

	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "bootstrap admin created", "user_id", u.ID, "email", u.Email)
	return nil
}
