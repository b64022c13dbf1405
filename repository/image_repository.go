package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"imageAnnotation/models"
)

var imageExtensions = []string{".png", ".jpg", ".jpeg"}

// IsImageFile reports whether name carries one of the served image extensions.
func IsImageFile(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// ImageRepository lists and opens the image files of batch folders.
type ImageRepository struct{}

func NewImageRepository() *ImageRepository {
	return &ImageRepository{}
}

// List returns the images directly inside the batch folder in directory order,
// each flagged as labeled when labels has an entry for its name.
// A missing folder has no images.
func (r *ImageRepository) List(ctx context.Context, batch *models.Batch, labels map[string]models.Label) ([]models.Image, error) {
	names, err := r.names(ctx, batch)
	if err != nil {
		return nil, err
	}
	out := make([]models.Image, 0, len(names))
	for _, n := range names {
		_, labeled := labels[n]
		out = append(out, models.Image{Name: n, Labeled: labeled})
	}
	return out, nil
}

// Count returns the number of images in the batch folder.
func (r *ImageRepository) Count(ctx context.Context, batch *models.Batch) (int, error) {
	names, err := r.names(ctx, batch)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

func (r *ImageRepository) names(ctx context.Context, batch *models.Batch) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(batch.FolderPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list batch folder: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Resolve maps filename to a file directly inside the batch folder, the same
// files List returns. Subpaths are refused so a batch folder nested in another
// stays out of reach of the outer batch's users. The result is canonical
// (symlinks evaluated) and checked against the canonical folder.
func (r *ImageRepository) Resolve(batch *models.Batch, filename string) (string, error) {
	name := strings.TrimLeft(filename, `/\`)
	if name == "" {
		return "", fmt.Errorf("%w: empty image name", ErrNotFound)
	}
	if strings.ContainsAny(name, `/\`) || name == "." || name == ".." ||
		filepath.IsAbs(name) || filepath.VolumeName(name) != "" {
		return "", fmt.Errorf("%w: %q", ErrForbiddenPath, filename)
	}

	root, err := filepath.EvalSymlinks(batch.FolderPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return "", fmt.Errorf("resolve batch folder: %w", err)
	}

	joined := filepath.Join(root, name)
	if !within(root, joined) {
		return "", fmt.Errorf("%w: %q", ErrForbiddenPath, filename)
	}
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return "", fmt.Errorf("resolve image path: %w", err)
	}
	if !within(root, resolved) {
		return "", fmt.Errorf("%w: %q", ErrForbiddenPath, filename)
	}
	return resolved, nil
}

// Open resolves filename and opens it for streaming. Directories count as missing.
func (r *ImageRepository) Open(batch *models.Batch, filename string) (*os.File, os.FileInfo, error) {
	path, err := r.Resolve(batch, filename)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
		}
		return nil, nil, fmt.Errorf("open image: %w", err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, nil, fmt.Errorf("stat image: %w", err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, filename)
	}
	return f, fi, nil
}

// within reports whether p is strictly below root.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
