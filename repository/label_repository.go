package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"imageAnnotation/models"
)

// LabelsFileName is the per-batch labels document, stored inside the batch folder.
const LabelsFileName = "labels.json"

// LabelRepository reads and writes each batch's labels.json.
// Nothing is cached: every Load reads the file. Writers to the same batch are
// serialized so a load-modify-write never loses a concurrent update.
type LabelRepository struct {
	batches BatchRepositoryI
	now     func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLabelRepository(batches BatchRepositoryI) *LabelRepository {
	return &LabelRepository{
		batches: batches,
		now:     time.Now,
		locks:   make(map[string]*sync.Mutex),
	}
}

// Load returns the label mapping of a batch; an absent file yields an empty mapping.
func (r *LabelRepository) Load(ctx context.Context, batchID string) (map[string]models.Label, error) {
	b, err := r.batch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return readLabels(filepath.Join(b.FolderPath, LabelsFileName))
}

// Save upserts the label of imageName, stamped with author and the current UTC time.
func (r *LabelRepository) Save(ctx context.Context, batchID, imageName, text, author string) (models.Label, error) {
	if imageName == "" || text == "" {
		return models.Label{}, fmt.Errorf("%w: image_name and label_text are required", ErrValidation)
	}
	b, err := r.batch(ctx, batchID)
	if err != nil {
		return models.Label{}, err
	}

	lock := r.lockFor(batchID)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(b.FolderPath, LabelsFileName)
	labels, err := readLabels(path)
	if err != nil {
		return models.Label{}, err
	}
	l := models.Label{
		Text:      text,
		UpdatedBy: author,
		UpdatedAt: r.now().UTC().Format(time.RFC3339Nano),
	}
	labels[imageName] = l

	if err := os.MkdirAll(b.FolderPath, 0o755); err != nil {
		return models.Label{}, fmt.Errorf("mkdir batch folder: %w", err)
	}
	if err := writeLabels(path, labels); err != nil {
		return models.Label{}, err
	}
	return l, nil
}

func (r *LabelRepository) batch(ctx context.Context, batchID string) (*models.Batch, error) {
	b, err := r.batches.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBatch, batchID)
	}
	return b, nil
}

func (r *LabelRepository) lockFor(batchID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[batchID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[batchID] = l
	}
	return l
}

func readLabels(path string) (map[string]models.Label, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make(map[string]models.Label), nil
		}
		return nil, fmt.Errorf("read labels file: %w", err)
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return nil, fmt.Errorf("%w: %s: empty document", ErrStorageCorrupt, path)
	}
	var labels map[string]models.Label
	if err := json.Unmarshal(b, &labels); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrStorageCorrupt, path, err)
	}
	if labels == nil {
		return nil, fmt.Errorf("%w: %s: null document", ErrStorageCorrupt, path)
	}
	return labels, nil
}

// writeLabels replaces the labels file through a temp file and rename so a crash
// mid-write never leaves a truncated document behind.
func writeLabels(path string, labels map[string]models.Label) error {
	b, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".labels-*.json.tmp")
	if err != nil {
		return fmt.Errorf("create temp labels file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp labels file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp labels file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp labels file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp labels file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace labels file: %w", err)
	}
	tmpName = ""
	return nil
}
