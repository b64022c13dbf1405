package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestLabelRepository_LoadMissingFileIsEmpty(t *testing.T) {
	_, batches, _ := newIndexes(t)
	labels, err := NewLabelRepository(batches).Load(context.Background(), "batch1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected empty mapping, got %v", labels)
	}
}

func TestLabelRepository_SaveAndReload(t *testing.T) {
	_, batches, dir := newIndexes(t)
	repo := NewLabelRepository(batches)
	fixed := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	repo.now = func() time.Time { return fixed }
	ctx := context.Background()

	l, err := repo.Save(ctx, "batch2", "a.jpg", "a cat", "user2")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if l.Text != "a cat" || l.UpdatedBy != "user2" || l.UpdatedAt != "2024-05-06T07:08:09Z" {
		t.Fatalf("unexpected label: %+v", l)
	}
	if _, err := repo.Save(ctx, "batch2", "a.jpg", "a dog", "user2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	labels, err := repo.Load(ctx, "batch2")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(labels) != 1 || labels["a.jpg"].Text != "a dog" {
		t.Fatalf("last write should win: %+v", labels)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "b2", LabelsFileName))
	if err != nil {
		t.Fatalf("read labels file: %v", err)
	}
	var onDisk map[string]map[string]string
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if onDisk["a.jpg"]["updated_by"] != "user2" || onDisk["a.jpg"]["text"] != "a dog" {
		t.Fatalf("unexpected on-disk schema: %s", raw)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "b2", ".labels-*"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestLabelRepository_SaveValidation(t *testing.T) {
	_, batches, _ := newIndexes(t)
	repo := NewLabelRepository(batches)
	for _, tc := range []struct{ image, text string }{{"", "x"}, {"a.jpg", ""}, {"", ""}} {
		_, err := repo.Save(context.Background(), "batch1", tc.image, tc.text, "user1")
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("Save(%q,%q) err=%v, want ErrValidation", tc.image, tc.text, err)
		}
	}
}

func TestLabelRepository_UnknownBatch(t *testing.T) {
	_, batches, _ := newIndexes(t)
	repo := NewLabelRepository(batches)
	if _, err := repo.Load(context.Background(), "ghost"); !errors.Is(err, ErrUnknownBatch) {
		t.Fatalf("Load err=%v, want ErrUnknownBatch", err)
	}
	if _, err := repo.Save(context.Background(), "ghost", "a.jpg", "x", "u"); !errors.Is(err, ErrUnknownBatch) {
		t.Fatalf("Save err=%v, want ErrUnknownBatch", err)
	}
}

func TestLabelRepository_CorruptFile(t *testing.T) {
	_, batches, dir := newIndexes(t)
	folder := filepath.Join(dir, "batch1")
	if err := os.MkdirAll(folder, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(folder, LabelsFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	repo := NewLabelRepository(batches)
	if _, err := repo.Load(context.Background(), "batch1"); !errors.Is(err, ErrStorageCorrupt) {
		t.Fatalf("Load err=%v, want ErrStorageCorrupt", err)
	}
	if _, err := repo.Save(context.Background(), "batch1", "a.jpg", "x", "user1"); !errors.Is(err, ErrStorageCorrupt) {
		t.Fatalf("Save err=%v, want ErrStorageCorrupt", err)
	}
	raw, _ := os.ReadFile(filepath.Join(folder, LabelsFileName))
	if string(raw) != "{not json" {
		t.Fatalf("corrupt file must not be overwritten, got %q", raw)
	}
}

func TestLabelRepository_EmptyOrNullFileIsCorrupt(t *testing.T) {
	for _, body := range []string{"", "  \n", "null"} {
		_, batches, dir := newIndexes(t)
		folder := filepath.Join(dir, "batch1")
		if err := os.MkdirAll(folder, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		path := filepath.Join(folder, LabelsFileName)
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		repo := NewLabelRepository(batches)
		if _, err := repo.Load(context.Background(), "batch1"); !errors.Is(err, ErrStorageCorrupt) {
			t.Fatalf("Load(%q) err=%v, want ErrStorageCorrupt", body, err)
		}
		if _, err := repo.Save(context.Background(), "batch1", "a.jpg", "x", "user1"); !errors.Is(err, ErrStorageCorrupt) {
			t.Fatalf("Save over %q err=%v, want ErrStorageCorrupt", body, err)
		}
		raw, _ := os.ReadFile(path)
		if string(raw) != body {
			t.Fatalf("file must not be overwritten, got %q", raw)
		}
	}
}

func TestLabelRepository_ConcurrentSavesKeepAllLabels(t *testing.T) {
	_, batches, _ := newIndexes(t)
	repo := NewLabelRepository(batches)
	ctx := context.Background()

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			who := "user3"
			if i%2 == 0 {
				who = "user4"
			}
			if _, err := repo.Save(ctx, "shared", fmt.Sprintf("img-%02d.png", i), "label", who); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent save: %v", err)
	}

	labels, err := repo.Load(ctx, "shared")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(labels) != n {
		t.Fatalf("lost updates: have %d labels, want %d", len(labels), n)
	}
}
