package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/geocoder89/authhub/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, email, password_hash, role, deleted, created_at, updated_at`

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

// GetCredentialsByEmail only selects what a login needs.
func (r *UsersRepo) GetCredentialsByEmail(ctx context.Context, email string) (user.Credentials, error) {
	var c user.Credentials

	err := r.prom.ObserveDB("users.get_credentials", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id, email, password_hash, role
			FROM users
			WHERE email = $1 AND deleted = FALSE`,
			email,
		).Scan(&c.ID, &c.Email, &c.PasswordHash, &c.Role)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.Credentials{}, user.ErrNotFound
		}
		return user.Credentials{}, err
	}

	return c, nil
}

// EmailExists includes soft-deleted rows because the unique constraint does.
func (r *UsersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool

	err := r.prom.ObserveDB("users.email_exists", func() error {
		return r.pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`,
			email,
		).Scan(&exists)
	})

	return exists, err
}

func (r *UsersRepo) Create(ctx context.Context, nu user.NewUser) (user.User, error) {
	now := time.Now().UTC()

	u := user.User{
		ID:           uuid.NewString(),
		Name:         nu.Name,
		Email:        nu.Email,
		PasswordHash: nu.PasswordHash,
		Role:         nu.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := r.prom.ObserveDB("users.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO users (id, name, email, password_hash, role, deleted, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
			u.ID, u.Name, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if observability.IsUniqueViolation(err) {
			return user.User{}, user.ErrDuplicateEmail
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.get_by_id", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted = FALSE`,
			id,
		), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) List(ctx context.Context, f user.ListFilter) ([]user.User, error) {
	out := make([]user.User, 0, f.Limit)

	err := r.prom.ObserveDB("users.list", func() error {
		rows, err := r.pool.Query(ctx,
			`SELECT `+userColumns+`
			FROM users
			WHERE deleted = FALSE
			ORDER BY created_at ASC, id ASC
			LIMIT $1 OFFSET $2`,
			f.Limit, f.Offset,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var u user.User
			if err := scanUser(rows, &u); err != nil {
				return err
			}
			out = append(out, u)
		}

		return rows.Err()
	})

	if err != nil {
		return nil, err
	}

	return out, nil
}

// Update writes only the non-nil fields of p in one statement.
func (r *UsersRepo) Update(ctx context.Context, id string, p user.Patch) (user.User, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{id}

	add := func(col string, v *string) {
		if v == nil {
			return
		}
		args = append(args, *v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	add("name", p.Name)
	add("email", p.Email)
	add("password_hash", p.PasswordHash)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + `
		WHERE id = $1 AND deleted = FALSE
		RETURNING ` + userColumns

	var u user.User

	err := r.prom.ObserveDB("users.update", func() error {
		return scanUser(r.pool.QueryRow(ctx, query, args...), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		if observability.IsUniqueViolation(err) {
			return user.User{}, user.ErrDuplicateEmail
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) SoftDelete(ctx context.Context, id string) (user.User, error) {
	var u user.User

	err := r.prom.ObserveDB("users.soft_delete", func() error {
		return scanUser(r.pool.QueryRow(ctx,
			`UPDATE users SET deleted = TRUE, updated_at = NOW()
			WHERE id = $1 AND deleted = FALSE
			RETURNING `+userColumns,
			id,
		), &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Deleted,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
}
