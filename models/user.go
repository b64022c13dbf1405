package models

// RoleAnnotator is the default role for users without an explicit role.
const RoleAnnotator = "annotator"

// RoleAdmin is the role given to admin users without an explicit role.
const RoleAdmin = "admin"

// User represents an account known to the service.
// Users are built from the configuration file at startup and never change afterwards.
type User struct {
	Username     string   `json:"username"`
	PasswordHash string   `json:"-"`
	Role         string   `json:"role"`
	IsAdmin      bool     `json:"is_admin"`
	Batches      []string `json:"batches"`
}

// HasBatch reports whether the user is assigned to the given batch.
func (u *User) HasBatch(batchID string) bool {
	for _, b := range u.Batches {
		if b == batchID {
			return true
		}
	}
	return false
}
