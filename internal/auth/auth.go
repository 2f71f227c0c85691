// Package auth extracts the signed-in identity from bearer tokens.
// Issuing tokens and sign-in screens live outside this service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Nagulan13/oboma/internal/apperr"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
	RoleAdmin    Role = "admin"
)

type Identity struct {
	UserID string
	Role   Role
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Parse validates an HS256 token and returns the identity carried in sub/role.
func (v *Verifier) Parse(token string) (Identity, error) {
	var c claims
	tok, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !tok.Valid {
		return Identity{}, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", apperr.ErrUnauthenticated)
	}

	role := Role(c.Role)
	switch role {
	case RoleCustomer, RoleStaff, RoleAdmin:
	case "":
		role = RoleCustomer
	default:
		return Identity{}, fmt.Errorf("%w: unknown role %q", apperr.ErrUnauthenticated, c.Role)
	}
	return Identity{UserID: c.Subject, Role: role}, nil
}

// Issue signs a token; used by tests and local tooling.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return tok.SignedString(v.secret)
}

// BearerToken strips the "Bearer " prefix of an Authorization header.
func BearerToken(header string) (string, error) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", errors.New("missing bearer token")
	}
	return strings.TrimSpace(header[len(prefix):]), nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns the identity or ErrUnauthenticated when none is attached.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, apperr.ErrUnauthenticated
	}
	return id, nil
}

// Allows reports whether the identity may act with the given role.
// Admins may act as staff.
func (id Identity) Allows(role Role) bool {
	if id.Role == role {
		return true
	}
	return id.Role == RoleAdmin && role == RoleStaff
}
