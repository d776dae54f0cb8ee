package auth

import (
	"errors"
	"net/http"
	"strings"
)

var ErrMissingToken = errors.New("missing bearer token")

// Authenticator pulls a token out of a request and turns it into claims.
type Authenticator interface {
	ExtractToken(r *http.Request) (string, error)
	VerifyToken(token string) (*Claims, error)
}

// BearerAuthenticator reads "Authorization: Bearer <token>".
type BearerAuthenticator struct {
	tokens *Manager
}

func NewBearerAuthenticator(m *Manager) *BearerAuthenticator {
	return &BearerAuthenticator{tokens: m}
}

func (a *BearerAuthenticator) ExtractToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrMissingToken
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrMissingToken
	}

	return raw, nil
}

func (a *BearerAuthenticator) VerifyToken(token string) (*Claims, error) {
	return a.tokens.Verify(token)
}
