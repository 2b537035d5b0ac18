// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account.
//
// Email is stored trimmed and lower-cased and is unique across the store.
// A User is created once at signup and never mutated afterwards.
// PasswordHash is never serialized.
type User struct {
	ID           string    `json:"id"        db:"id"`
	Name         string    `json:"name"      db:"name"`
	Email        string    `json:"email"     db:"email"`
	PasswordHash string    `json:"-"         db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// Identity is the public view of a User that travels with a session.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Identity strips the credential fields from u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}
