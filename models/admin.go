package models

// Admin "inherits" from User via embedding. Admins carry no batch assignments;
// their only extra capability is reading progress across every batch.
type Admin struct {
	User
}

// NewAdmin creates an admin model with Role preset to "admin".
func NewAdmin(username, passwordHash string) *Admin {
	return &Admin{User: User{Username: username, PasswordHash: passwordHash, Role: RoleAdmin, IsAdmin: true}}
}
