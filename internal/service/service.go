// Package service holds the account flows: credential validation,
// registration, login and user management on top of a UserStore.
package service

import (
	"context"
	"strings"

	"github.com/geocoder89/authhub/internal/domain/user"
)

// UserStore is the persistence port. Implementations translate unique
// violations on email into user.ErrDuplicateEmail and misses into user.ErrNotFound.
// Every read except EmailExists skips soft-deleted rows.
type UserStore interface {
	GetCredentialsByEmail(ctx context.Context, email string) (user.Credentials, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, nu user.NewUser) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	List(ctx context.Context, f user.ListFilter) ([]user.User, error)
	Update(ctx context.Context, id string, p user.Patch) (user.User, error)
	SoftDelete(ctx context.Context, id string) (user.User, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, digest string) (bool, error)
}

type TokenIssuer interface {
	Issue(id user.Identity) (string, error)
}

// Metrics is satisfied by *observability.Prom.
type Metrics interface {
	AuthEvent(event, result string)
}

type nopMetrics struct{}

func (nopMetrics) AuthEvent(string, string) {}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
