package repository

import (
	"context"
	"os"

	"imageAnnotation/models"
)

// UserRepositoryI defines read access to the identity index.
type UserRepositoryI interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) []models.User
}

// BatchRepositoryI defines read access to the batch index.
type BatchRepositoryI interface {
	Get(ctx context.Context, batchID string) (*models.Batch, error)
	List(ctx context.Context) []models.Batch
}

// LabelRepositoryI defines operations on a batch's label mapping.
type LabelRepositoryI interface {
	Load(ctx context.Context, batchID string) (map[string]models.Label, error)
	Save(ctx context.Context, batchID, imageName, text, author string) (models.Label, error)
}

// ImageRepositoryI defines operations on the image files of a batch folder.
type ImageRepositoryI interface {
	List(ctx context.Context, batch *models.Batch, labels map[string]models.Label) ([]models.Image, error)
	Count(ctx context.Context, batch *models.Batch) (int, error)
	Open(batch *models.Batch, filename string) (*os.File, os.FileInfo, error)
}
