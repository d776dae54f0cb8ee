package user

import "strings"

type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleAdmin      Role = "ADMIN"
	RoleManagement Role = "MANAGEMENT"
)

// AllRoles lists every role in declaration order.
var AllRoles = []Role{RoleCustomer, RoleAdmin, RoleManagement}

func (r Role) IsValid() bool {
	switch r {
	case RoleCustomer, RoleAdmin, RoleManagement:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole accepts any casing ("admin", "Admin", "ADMIN").
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))

	if !r.IsValid() {
		return "", ErrInvalidRole
	}

	return r, nil
}
