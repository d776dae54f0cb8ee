package auth_test

import (
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/authhub/internal/auth"
	"github.com/geocoder89/authhub/internal/domain/user"
	"github.com/golang-jwt/jwt/v5"
)

func testIdentity() user.Identity {
	return user.Identity{
		ID:    "6f1c2f1e-8d7a-4a39-9a8e-0c3d5f0b1a11",
		Email: "a@x.com",
		Role:  user.RoleCustomer,
	}
}

func TestManager_IssueAndVerify(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	tok, err := m.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	if claims.UserID() != testIdentity().ID {
		t.Fatalf("sub = %q, want %q", claims.UserID(), testIdentity().ID)
	}
	if claims.Email != "a@x.com" {
		t.Fatalf("email = %q", claims.Email)
	}
	if claims.Role != user.RoleCustomer {
		t.Fatalf("role = %q", claims.Role)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatalf("expected iat and exp to be set")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != m.TTL() {
		t.Fatalf("exp - iat = %v, want %v", got, m.TTL())
	}
}

func TestManager_TokenNeverEmbedsPassword(t *testing.T) {
	m := auth.NewManager("test-secret", time.Hour)

	tok, err := m.Issue(testIdentity())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, mc); err != nil {
		t.Fatalf("parse unverified: %v", err)
	}

	for k := range mc {
		if strings.Contains(strings.ToLower(k), "pass") {
			t.Fatalf("token carries a password claim %q", k)
		}
	}

	for _, k := range []string{"sub", "email", "role", "iat", "exp"} {
		if _, ok := mc[k]; !ok {
			t.Fatalf("token missing claim %q: %v", k, mc)
		}
	}
}

func TestManager_VerifyRejects(t *testing.T) {
	good := auth.NewManager("test-secret", time.Hour)
	expired := auth.NewManager("test-secret", -time.Minute)
	other := auth.NewManager("other-secret", time.Hour)

	expiredTok, _ := expired.Issue(testIdentity())
	otherTok, _ := other.Issue(testIdentity())

	noneTok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":   "x",
		"email": "a@x.com",
		"role":  "ADMIN",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	badRoleTok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "x",
		"email": "a@x.com",
		"role":  "ROOT",
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign bad role: %v", err)
	}

	noExpTok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "x",
		"email": "a@x.com",
		"role":  "ADMIN",
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign no exp: %v", err)
	}

	tests := map[string]string{
		"expired":      expiredTok,
		"wrong_secret": otherTok,
		"alg_none":     noneTok,
		"unknown_role": badRoleTok,
		"missing_exp":  noExpTok,
		"garbage":      "not.a.jwt",
		"empty":        "",
	}

	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := good.Verify(tok); err != auth.ErrInvalidToken {
				t.Fatalf("verify err = %v, want ErrInvalidToken", err)
			}
		})
	}
}
