// internal/models/user.go
package models

import "github.com/google/uuid"

// User represents a row in the users table. Account lifecycle (registration,
// login) is owned by the auth service; we only read display fields.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
}

// UserSummary is the public display shape embedded in snapshots and chat
// messages.
type UserSummary struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
}

// Summary converts a full user row to its public display shape.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Avatar: u.Avatar}
}
