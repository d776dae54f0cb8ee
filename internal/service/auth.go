package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/geocoder89/authhub/internal/domain/user"
)

type AuthService struct {
	users   UserStore
	hasher  PasswordHasher
	tokens  TokenIssuer
	metrics Metrics

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(users UserStore, hasher PasswordHasher, tokens TokenIssuer, metrics Metrics) *AuthService {
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &AuthService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		metrics: metrics,
	}
}

// ValidateCredentials returns the identity for a matching email/password.
// Unknown email and wrong password both yield user.ErrInvalidCredentials.
func (s *AuthService) ValidateCredentials(ctx context.Context, email, password string) (user.Identity, error) {
	creds, err := s.users.GetCredentialsByEmail(ctx, normalizeEmail(email))

	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			return user.Identity{}, fmt.Errorf("lookup user by email: %w", err)
		}

		// burn the same bcrypt time as a real check so response latency
		// does not reveal whether the email exists
		_, _ = s.hasher.Verify(ctx, password, s.dummy(ctx))
		return user.Identity{}, user.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(ctx, password, creds.PasswordHash)
	if err != nil {
		return user.Identity{}, err
	}

	if !ok {
		return user.Identity{}, user.ErrInvalidCredentials
	}

	return user.Identity{ID: creds.ID, Email: creds.Email, Role: creds.Role}, nil
}

func (s *AuthService) Login(ctx context.Context, req user.LoginRequest) (string, error) {
	id, err := s.ValidateCredentials(ctx, req.Email, req.Password)
	if err != nil {
		s.metrics.AuthEvent("login", loginResult(err))
		return "", err
	}

	token, err := s.tokens.Issue(id)
	if err != nil {
		s.metrics.AuthEvent("login", "error")
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.AuthEvent("login", "ok")
	slog.InfoContext(ctx, "user logged in", "user_id", id.ID)

	return token, nil
}

// Register creates a CUSTOMER account and returns a token for it. Any role
// a client might send is ignored here; only CreateUser can assign roles.
func (s *AuthService) Register(ctx context.Context, req user.RegisterRequest) (string, error) {
	email := normalizeEmail(req.Email)

	exists, err := s.users.EmailExists(ctx, email)
	if err != nil {
		s.metrics.AuthEvent("register", "error")
		return "", fmt.Errorf("check email: %w", err)
	}

	if exists {
		s.metrics.AuthEvent("register", "duplicate")
		return "", user.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		s.metrics.AuthEvent("register", "error")
		return "", fmt.Errorf("hash password: %w", err)
	}

	// a concurrent register for the same email can still win the insert;
	// the store maps that unique violation to ErrDuplicateEmail
	u, err := s.users.Create(ctx, user.NewUser{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         user.RoleCustomer,
	})
	if err != nil {
		if errors.Is(err, user.ErrDuplicateEmail) {
			s.metrics.AuthEvent("register", "duplicate")
			return "", err
		}
		s.metrics.AuthEvent("register", "error")
		return "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(u.Identity())
	if err != nil {
		s.metrics.AuthEvent("register", "error")
		return "", fmt.Errorf("issue token: %w", err)
	}

	s.metrics.AuthEvent("register", "ok")
	slog.InfoContext(ctx, "user registered", "user_id", u.ID)

	return token, nil
}

// dummy builds the equalizer digest once. The request's cancellation is
// dropped so one aborted login cannot leave the digest empty for good.
func (s *AuthService) dummy(ctx context.Context) string {
	s.dummyOnce.Do(func() {
		d, err := s.hasher.Hash(context.WithoutCancel(ctx), "authhub-timing-equalizer")
		if err != nil {
			slog.ErrorContext(ctx, "build timing equalizer digest", "err", err)
			return
		}
		s.dummyDigest = d
	})
	return s.dummyDigest
}

func loginResult(err error) string {
	if errors.Is(err, user.ErrInvalidCredentials) {
		return "invalid_credentials"
	}
	return "error"
}
