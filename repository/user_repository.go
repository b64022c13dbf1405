package repository

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"imageAnnotation/internal/config"
	"imageAnnotation/models"
)

// UserRepository is the identity index: username to credentials, role and batches.
// It is built once at startup and only read afterwards, so it needs no locking.
type UserRepository struct {
	users map[string]*models.User
	order []string
}

// NewUserRepository builds the identity index, hashing plaintext passwords with bcrypt's default cost.
func NewUserRepository(uf *config.UsersFile) (*UserRepository, error) {
	return NewUserRepositoryWithCost(uf, bcrypt.DefaultCost)
}

// NewUserRepositoryWithCost is NewUserRepository with an explicit bcrypt cost.
// A username listed more than once accumulates batches; its first entry decides
// password, role and admin flag.
func NewUserRepositoryWithCost(uf *config.UsersFile, cost int) (*UserRepository, error) {
	if uf == nil {
		return nil, fmt.Errorf("users file is required")
	}
	r := &UserRepository{users: make(map[string]*models.User, len(uf.Users))}
	for _, e := range uf.Users {
		u, ok := r.users[e.Username]
		if !ok {
			hash := e.PasswordHash
			if hash == "" {
				b, err := bcrypt.GenerateFromPassword([]byte(e.Password), cost)
				if err != nil {
					return nil, fmt.Errorf("hash password for %q: %w", e.Username, err)
				}
				hash = string(b)
			}
			if e.IsAdmin {
				u = &models.NewAdmin(e.Username, hash).User
				if e.Role != "" {
					u.Role = e.Role
				}
			} else {
				role := e.Role
				if role == "" {
					role = models.RoleAnnotator
				}
				u = &models.User{Username: e.Username, PasswordHash: hash, Role: role}
			}
			r.users[e.Username] = u
			r.order = append(r.order, e.Username)
		}
		if u.IsAdmin || e.BatchID == "" || u.HasBatch(e.BatchID) {
			continue
		}
		u.Batches = append(u.Batches, e.BatchID)
	}
	return r, nil
}

// GetByUsername returns a copy of the user, or nil if the username is unknown.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, ok := r.users[username]
	if !ok {
		return nil, nil
	}
	out := *u
	out.Batches = append([]string(nil), u.Batches...)
	return &out, nil
}

// List returns every user in configuration order.
func (r *UserRepository) List(ctx context.Context) []models.User {
	out := make([]models.User, 0, len(r.order))
	for _, name := range r.order {
		u := *r.users[name]
		u.Batches = append([]string(nil), u.Batches...)
		out = append(out, u)
	}
	return out
}
