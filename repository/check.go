package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"imageAnnotation/models"
)

// CheckBatch verifies a batch folder is usable: it creates the folder when
// missing, lists its images and probes that a file can be written there.
// A failed write probe is reported in the result, not as an error.
func CheckBatch(ctx context.Context, images *ImageRepository, batch *models.Batch) (models.BatchCheck, error) {
	res := models.BatchCheck{BatchID: batch.ID, FolderPath: batch.FolderPath}

	if _, err := os.Stat(batch.FolderPath); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return res, fmt.Errorf("stat batch folder: %w", err)
		}
		if err := os.MkdirAll(batch.FolderPath, 0o755); err != nil {
			return res, fmt.Errorf("create batch folder: %w", err)
		}
		res.Created = true
	}

	list, err := images.List(ctx, batch, nil)
	if err != nil {
		return res, err
	}
	for _, img := range list {
		res.Images = append(res.Images, img.Name)
	}

	probe := filepath.Join(batch.FolderPath, ".write_probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		res.WriteError = err.Error()
		return res, nil
	}
	if err := os.Remove(probe); err != nil {
		res.WriteError = err.Error()
		return res, nil
	}
	res.Writable = true
	return res, nil
}
