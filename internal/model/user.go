// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// User represents a registered account.
//
// Two kinds of accounts share this table:
//   - local accounts, created by /api/auth/register, with a bcrypt PasswordHash
//   - GitHub accounts, created on first OAuth login, with GitHubID set and no hash
//
// WHY *string FOR PasswordHash?
// A GitHub account genuinely has no local password. A nil pointer maps to SQL
// NULL and makes "this account cannot log in with a password" explicit, instead
// of overloading the empty string.
//
// The `json:"-"` tag keeps the hash out of every JSON response, even if a
// handler accidentally serialises the whole struct.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"` // always lower-case, see service.normalizeEmail
	Name         string    `json:"name"`
	PasswordHash *string   `json:"-"`
	GitHubID     *int64    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// PublicUser is the projection of a User that is safe to return to clients.
type PublicUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public returns the client-safe projection of u.
func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID, Email: u.Email, Name: u.Name}
}
