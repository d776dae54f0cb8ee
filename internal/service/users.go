package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type UserService struct {
	users   UserStore
	hasher  PasswordHasher
	metrics Metrics
}

func NewUserService(users UserStore, hasher PasswordHasher, metrics Metrics) *UserService {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &UserService{users: users, hasher: hasher, metrics: metrics}
}

// CreateUser is the privileged creation path. Role defaults to CUSTOMER.
func (s *UserService) CreateUser(ctx context.Context, req user.CreateUserRequest) (user.User, error) {
	role := user.RoleCustomer

	if req.Role != "" {
		r, err := user.ParseRole(req.Role)
		if err != nil {
			return user.User{}, err
		}
		role = r
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, user.NewUser{
		Name:         req.Name,
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         role,
	})

	s.metrics.AuthEvent("create_user", resultOrDuplicate(err))

	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			return user.User{}, err
		}
		return user.User{}, fmt.Errorf("create user: %w", err)
	}

	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, f user.ListFilter) ([]user.User, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	return s.users.List(ctx, f)
}

func (s *UserService) GetUser(ctx context.Context, id string) (user.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return user.User{}, user.ErrNotFound
	}

	return s.users.GetByID(ctx, id)
}

// UpdateSelf persists only the fields present in req. A new password is
// re-hashed with a fresh salt before it reaches the store.
func (s *UserService) UpdateSelf(ctx context.Context, id string, req user.UpdateSelfRequest) (user.User, error) {
	patch := user.Patch{Name: req.Name}

	if req.Email != nil {
		email := normalizeEmail(*req.Email)
		patch.Email = &email
	}

	if req.Password != nil {
		hash, err := s.hasher.Hash(ctx, *req.Password)
		if err != nil {
			return user.User{}, fmt.Errorf("hash password: %w", err)
		}
		patch.PasswordHash = &hash
	}

	if patch.Empty() {
		return s.users.GetByID(ctx, id)
	}

	u, err := s.users.Update(ctx, id, patch)
	s.metrics.AuthEvent("update_self", resultOrDuplicate(err))

	if err != nil {
		return user.User{}, err
	}

	slog.InfoContext(ctx, "user updated self",
		"user_id", id,
		"email_changed", patch.Email != nil,
		"password_changed", patch.PasswordHash != nil,
	)

	return u, nil
}

// DeleteSelf soft-deletes the caller. Tokens already issued stay valid until
// they expire, but every lookup and write path ignores the row from now on.
func (s *UserService) DeleteSelf(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.SoftDelete(ctx, id)
	s.metrics.AuthEvent("delete_self", result(err))

	if err != nil {
		return user.User{}, err
	}

	slog.InfoContext(ctx, "user soft-deleted", "user_id", id)
	return u, nil
}

func resultOrDuplicate(err error) string {
	if errors.Is(err, user.ErrDuplicateEmail) {
		return "duplicate"
	}
	return result(err)
}
