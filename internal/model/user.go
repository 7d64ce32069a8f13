package model

import (
	"fmt"
	"time"
)

// User is an account holder of the task manager.
type User struct {
	ID           string    `db:"id" json:"id"` // uuid
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FullName returns the user's display name, e.g. "Alice Wang".
func (u *User) FullName() string {
	return fmt.Sprintf("%s %s", u.FirstName, u.LastName)
}
