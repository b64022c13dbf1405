package models

// ProgressRecord summarizes labeling completion of one batch for one of its users.
// A batch with several users yields one record per user, all sharing the same counts.
type ProgressRecord struct {
	User                 string  `json:"user"`
	BatchID              string  `json:"batch_id"`
	TotalImages          int     `json:"total_images"`
	LabeledCount         int     `json:"labeled_count"`
	ValidLabeled         int     `json:"valid_labeled"`
	InvalidMarked        int     `json:"invalid_marked"`
	CompletionPercentage float64 `json:"completion_percentage"`
	LastUpdate           *string `json:"last_update"`
}
