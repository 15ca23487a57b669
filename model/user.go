// Package model provides the records persisted by the report backend.
package model

import (
	"time"
)

// User represents an employee known to the system.
// Login is the normalized tracker login (local part before '@').
type User struct {
	Key       string    `json:"_key,omitempty"`
	Login     string    `json:"login"`
	IsAdmin   bool      `json:"is_admin"` // display cache; the admin allow-list is authoritative
	CreatedAt time.Time `json:"created_at"`
}

// NewUser creates a user with default values
func NewUser(login string) *User {
	return &User{
		Login:     login,
		CreatedAt: time.Now().UTC(),
	}
}
