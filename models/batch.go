package models

// Batch is a folder of images assigned to one or more users.
type Batch struct {
	ID         string   `json:"batch_id"`
	FolderPath string   `json:"folder_path"`
	Users      []string `json:"users"`
}

// Authorizes reports whether username may read and label this batch.
func (b *Batch) Authorizes(username string) bool {
	for _, u := range b.Users {
		if u == username {
			return true
		}
	}
	return false
}

// BatchCheck is the outcome of probing a batch folder on disk.
type BatchCheck struct {
	BatchID    string   `json:"batch_id"`
	FolderPath string   `json:"folder_path"`
	Created    bool     `json:"created"`
	Images     []string `json:"images"`
	Writable   bool     `json:"writable"`
	WriteError string   `json:"write_error,omitempty"`
}
