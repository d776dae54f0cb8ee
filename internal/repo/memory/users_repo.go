package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/google/uuid"
)

// UsersRepo is an in-process user store with the same contract as the
// postgres one: unique emails across deleted rows, reads skip deleted rows.
type UsersRepo struct {
	mu      sync.RWMutex
	items   map[string]user.User // by id
	byEmail map[string]string    // email -> id
	now     func() time.Time
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		items:   make(map[string]user.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *UsersRepo) GetCredentialsByEmail(ctx context.Context, email string) (user.Credentials, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok {
		return user.Credentials{}, user.ErrNotFound
	}

	u := r.items[id]
	if u.Deleted {
		return user.Credentials{}, user.ErrNotFound
	}

	return user.Credentials{ID: u.ID, Email: u.Email, PasswordHash: u.PasswordHash, Role: u.Role}, nil
}

func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	r.mu.RLock()
	_, ok := r.byEmail[email]
	r.mu.RUnlock()

	return ok, nil
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	now := r.now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return user.User{}, user.ErrDuplicateEmail
	}

	r.items[u.ID] = u
	r.byEmail[u.Email] = u.ID

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok || u.Deleted {
		return user.User{}, user.ErrNotFound
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context, f user.ListFilter) ([]user.User, error) {
	r.mu.RLock()
	out := make([]user.User, 0, len(r.items))
	for _, u := range r.items {
		if !u.Deleted {
			out = append(out, u)
		}
	}
	r.mu.RUnlock()

	// same ordering as the postgres repo
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if f.Offset >= len(out) {
		return []user.User{}, nil
	}
	out = out[f.Offset:]

	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}

	return out, nil
}

func (r *UsersRepo) Update(ctx context.Context, id string, p user.Patch) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || u.Deleted {
		return user.User{}, user.ErrNotFound
	}

	if p.Email != nil && *p.Email != u.Email {
		if _, taken := r.byEmail[*p.Email]; taken {
			return user.User{}, user.ErrDuplicateEmail
		}
		delete(r.byEmail, u.Email)
		r.byEmail[*p.Email] = id
		u.Email = *p.Email
	}

	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.PasswordHash != nil {
		u.PasswordHash = *p.PasswordHash
	}

	u.UpdatedAt = r.now().UTC()
	r.items[id] = u

	return u, nil
}

func (r *UsersRepo) SoftDelete(ctx context.Context, id string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || u.Deleted {
		return user.User{}, user.ErrNotFound
	}

	u.Deleted = true
	u.UpdatedAt = r.now().UTC()
	r.items[id] = u

	return u, nil
}
