package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

// Principal represents the authenticated caller from JWT.
type Principal struct {
	Username  string
	Role      string
	IsAdmin   bool
	ExpiresAt time.Time
}

// Claims is the token payload issued at login.
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	IsAdmin  bool   `json:"is_admin"`
	jwt.RegisteredClaims
}

type principalKey struct{}

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext retrieves the principal from context (if any).
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// ParseFromHeader validates the token carried by an Authorization header value.
// The token is whatever follows the first space; the scheme itself is not checked.
func ParseFromHeader(value, secret string) (*Principal, error) {
	if strings.TrimSpace(value) == "" {
		return nil, ErrTokenMissing
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenMalformed)
	}
	return ParseToken(strings.TrimSpace(parts[1]), secret)
}

// ParseFromQuery validates a bare token passed as a query parameter. Browsers
// cannot attach headers to <img> requests, so image URLs carry the token this way.
func ParseFromQuery(value, secret string) (*Principal, error) {
	if value == "" {
		return nil, ErrTokenMissing
	}
	return ParseToken(value, secret)
}

// ParseFromMD extracts and validates the JWT of the authorization entry of gRPC metadata.
func ParseFromMD(ctx context.Context, secret string) (*Principal, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return nil, ErrTokenMissing
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return nil, ErrTokenMissing
	}
	return ParseFromHeader(vals[0], secret)
}

// ParseToken validates signature, algorithm and expiry of tokenStr and extracts the principal.
// Failures wrap ErrTokenInvalid together with a narrower cause when one is known.
func ParseToken(tokenStr string, secret string) (*Principal, error) {
	if tokenStr == "" {
		return nil, ErrTokenMissing
	}
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}

	tok, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenExpired)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenSignature)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, ErrTokenMalformed)
		default:
			return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
		}
	}
	c, _ := tok.Claims.(*Claims)
	if !tok.Valid || c == nil || c.Username == "" {
		return nil, fmt.Errorf("%w: invalid claims", ErrTokenInvalid)
	}
	p := &Principal{Username: c.Username, Role: c.Role, IsAdmin: c.IsAdmin}
	if c.ExpiresAt != nil {
		p.ExpiresAt = c.ExpiresAt.Time
	}
	return p, nil
}
