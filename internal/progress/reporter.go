// Package progress computes labeling completion across every batch.
package progress

import (
	"context"
	"fmt"
	"time"

	"imageAnnotation/models"
	"imageAnnotation/repository"
)

// UnknownTime stands in for a label whose timestamp is missing or unreadable.
const UnknownTime = "2000-01-01T00:00:00Z"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Reporter reads batches, labels and images on every call; nothing is cached.
type Reporter struct {
	batches repository.BatchRepositoryI
	labels  repository.LabelRepositoryI
	images  repository.ImageRepositoryI
}

func NewReporter(batches repository.BatchRepositoryI, labels repository.LabelRepositoryI, images repository.ImageRepositoryI) *Reporter {
	return &Reporter{batches: batches, labels: labels, images: images}
}

// All returns one record per (user, batch) pair, batches in id order and users
// in the order they were authorized. A corrupt labels file fails the whole report.
func (r *Reporter) All(ctx context.Context) ([]models.ProgressRecord, error) {
	var out []models.ProgressRecord
	for _, b := range r.batches.List(ctx) {
		rec, err := r.batch(ctx, &b)
		if err != nil {
			return nil, fmt.Errorf("batch %s: %w", b.ID, err)
		}
		for _, u := range b.Users {
			rec.User = u
			out = append(out, rec)
		}
	}
	if out == nil {
		out = []models.ProgressRecord{}
	}
	return out, nil
}

func (r *Reporter) batch(ctx context.Context, b *models.Batch) (models.ProgressRecord, error) {
	total, err := r.images.Count(ctx, b)
	if err != nil {
		return models.ProgressRecord{}, err
	}
	labels, err := r.labels.Load(ctx, b.ID)
	if err != nil {
		return models.ProgressRecord{}, err
	}

	rec := models.ProgressRecord{BatchID: b.ID, TotalImages: total, LabeledCount: len(labels)}
	for _, l := range labels {
		if l.IsInvalid() {
			rec.InvalidMarked++
		}
	}
	rec.ValidLabeled = rec.LabeledCount - rec.InvalidMarked
	if total > 0 {
		rec.CompletionPercentage = float64(rec.LabeledCount) / float64(total) * 100
	}
	rec.LastUpdate = lastUpdate(labels)
	return rec, nil
}

// lastUpdate returns the latest label timestamp in RFC3339 UTC, or nil without labels.
func lastUpdate(labels map[string]models.Label) *string {
	if len(labels) == 0 {
		return nil
	}
	sentinel, _ := time.Parse(time.RFC3339, UnknownTime)
	latest := time.Time{}
	for _, l := range labels {
		t, ok := parseTime(l.UpdatedAt)
		if !ok {
			t = sentinel
		}
		if t.After(latest) {
			latest = t
		}
	}
	s := latest.UTC().Format(time.RFC3339Nano)
	return &s
}

// parseTime accepts RFC3339 and the zone-less layouts older label files carry,
// which are read as UTC.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
