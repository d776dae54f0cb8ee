package auth

import "github.com/geocoder89/authhub/internal/domain/user"

// Authorize reports whether the claims' role is one of allowed.
// Nil claims and an empty allowed set both deny.
func Authorize(claims *Claims, allowed ...user.Role) bool {
	if claims == nil {
		return false
	}

	for _, r := range allowed {
		if claims.Role == r {
			return true
		}
	}

	return false
}
