package user

import "time"

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         Role      `json:"role"`
	Deleted      bool      `json:"deleted"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Identity is the result of a successful credential check.
// It intentionally has no place for the password digest.
type Identity struct {
	ID    string
	Email string
	Role  Role
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Credentials is the narrow projection used by login lookups.
type Credentials struct {
	ID           string
	Email        string
	PasswordHash string
	Role         Role
}

// NewUser is what the store persists on create. PasswordHash must already be hashed.
type NewUser struct {
	Name         string
	Email        string
	PasswordHash string
	Role         Role
}

// Patch holds the fields of a partial update; nil means "leave unchanged".
type Patch struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

func (p Patch) Empty() bool {
	return p.Name == nil && p.Email == nil && p.PasswordHash == nil
}

type ListFilter struct {
	Limit  int
	Offset int
}
