package auth

import (
	"context"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"imageAnnotation/models"
	"imageAnnotation/repository"
)

// Issuer verifies credentials against the identity index and signs tokens.
type Issuer struct {
	users  repository.UserRepositoryI
	secret string
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(users repository.UserRepositoryI, secret string, ttl time.Duration) (*Issuer, error) {
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be > 0")
	}
	return &Issuer{users: users, secret: secret, ttl: ttl, now: time.Now}, nil
}

// Secret returns the signing secret so request guards can verify issued tokens.
func (i *Issuer) Secret() string { return i.secret }

// Authenticate checks username and password and returns a signed token for the user.
func (i *Issuer) Authenticate(ctx context.Context, username, password string) (string, *models.User, error) {
	u, err := i.users.GetByUsername(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("get user: %w", err)
	}
	if u == nil {
		return "", nil, ErrUserNotFound
	}
	if err := CheckPassword(u.PasswordHash, password); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := i.Issue(u)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

// Issue signs a token embedding the user's name, role and admin flag.
func (i *Issuer) Issue(u *models.User) (string, error) {
	now := i.now()
	claims := Claims{
		Username: u.Username,
		Role:     u.Role,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}
