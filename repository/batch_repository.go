package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"imageAnnotation/internal/config"
	"imageAnnotation/models"
)

// BatchRepository is the batch index: batch id to folder and authorized users.
// Like UserRepository it is read-only after construction.
type BatchRepository struct {
	batches map[string]*models.Batch
	ids     []string
}

// NewBatchRepository folds the non-admin entries of uf into batches rooted at imagesDir.
// Only users present in the identity index are authorized, so every batch's user
// list is a subset of the known users.
func NewBatchRepository(uf *config.UsersFile, users *UserRepository, imagesDir string) (*BatchRepository, error) {
	if uf == nil || users == nil {
		return nil, fmt.Errorf("users file and user repository are required")
	}
	root, err := filepath.Abs(imagesDir)
	if err != nil {
		return nil, fmt.Errorf("resolve images dir: %w", err)
	}

	r := &BatchRepository{batches: make(map[string]*models.Batch)}
	for _, e := range uf.Users {
		u, ok := users.users[e.Username]
		if !ok || u.IsAdmin || e.BatchID == "" {
			continue
		}
		folder := filepath.Join(root, filepath.FromSlash(e.BatchFolder))
		b, ok := r.batches[e.BatchID]
		if !ok {
			b = &models.Batch{ID: e.BatchID, FolderPath: folder}
			r.batches[e.BatchID] = b
			r.ids = append(r.ids, e.BatchID)
		} else if b.FolderPath != folder {
			return nil, fmt.Errorf("batch %q is mapped to both %s and %s", e.BatchID, b.FolderPath, folder)
		}
		if !b.Authorizes(e.Username) {
			b.Users = append(b.Users, e.Username)
		}
	}
	sort.Strings(r.ids)
	return r, nil
}

// Get returns a copy of the batch, or nil if the id is unknown.
func (r *BatchRepository) Get(ctx context.Context, batchID string) (*models.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, ok := r.batches[batchID]
	if !ok {
		return nil, nil
	}
	out := *b
	out.Users = append([]string(nil), b.Users...)
	return &out, nil
}

// List returns every batch ordered by id.
func (r *BatchRepository) List(ctx context.Context) []models.Batch {
	out := make([]models.Batch, 0, len(r.ids))
	for _, id := range r.ids {
		b := *r.batches[id]
		b.Users = append([]string(nil), b.Users...)
		out = append(out, b)
	}
	return out
}

// EnsureFolders creates every batch folder that does not exist yet.
func (r *BatchRepository) EnsureFolders() error {
	for _, id := range r.ids {
		if err := os.MkdirAll(r.batches[id].FolderPath, 0o755); err != nil {
			return fmt.Errorf("create folder for batch %s: %w", id, err)
		}
	}
	return nil
}
