package auth

import (
	"context"
	"fmt"

	"imageAnnotation/models"
	"imageAnnotation/repository"
)

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, ErrTokenMissing
	}
	return p, nil
}

// AuthorizeBatch ensures the caller is listed on batchID and returns the batch.
// Admins get no bypass here: they read progress, not batch contents.
func AuthorizeBatch(ctx context.Context, batches repository.BatchRepositoryI, batchID string) (*Principal, *models.Batch, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, nil, err
	}
	b, err := batches.Get(ctx, batchID)
	if err != nil {
		return nil, nil, fmt.Errorf("get batch: %w", err)
	}
	if b == nil || !b.Authorizes(p.Username) {
		return p, nil, fmt.Errorf("%w: %s may not access batch %s", ErrForbidden, p.Username, batchID)
	}
	return p, b, nil
}

// RequireAdmin ensures the caller is an admin principal AND that the underlying
// user is still an admin in the identity index. This prevents spoofing by a
// token signed before the configuration changed.
func RequireAdmin(ctx context.Context, users repository.UserRepositoryI) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin {
		return p, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	if users == nil {
		return p, fmt.Errorf("users repository not configured")
	}
	u, err := users.GetByUsername(ctx, p.Username)
	if err != nil {
		return p, fmt.Errorf("get user: %w", err)
	}
	if u == nil || !u.IsAdmin {
		return p, fmt.Errorf("%w: admin only", ErrForbidden)
	}
	return p, nil
}
